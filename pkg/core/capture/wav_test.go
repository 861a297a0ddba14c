package capture

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_Header(t *testing.T) {
	pcm := make([]byte, 16000) // half a second at 16kHz mono 16-bit
	wav := EncodeWAV(pcm, DefaultFormat())

	if len(wav) != 44+len(pcm) {
		t.Fatalf("length = %d, want %d", len(wav), 44+len(pcm))
	}
	if got := string(wav[0:4]); got != "RIFF" {
		t.Errorf("chunk id = %q, want RIFF", got)
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("riff size = %d, want %d", got, 36+len(pcm))
	}
	if got := string(wav[8:12]); got != "WAVE" {
		t.Errorf("format = %q, want WAVE", got)
	}
	if got := binary.LittleEndian.Uint16(wav[20:22]); got != 1 {
		t.Errorf("audio format = %d, want PCM", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 32000 {
		t.Errorf("byte rate = %d, want 32000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[32:34]); got != 2 {
		t.Errorf("block align = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if got := string(wav[36:40]); got != "data" {
		t.Errorf("data id = %q", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}

func TestEncodeWAV_Stereo(t *testing.T) {
	format := Format{SampleRate: 24000, Channels: 2}
	wav := EncodeWAV(nil, format)

	if len(wav) != 44 {
		t.Fatalf("length = %d, want header only", len(wav))
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 2 {
		t.Errorf("channels = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 96000 {
		t.Errorf("byte rate = %d, want 96000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[32:34]); got != 4 {
		t.Errorf("block align = %d, want 4", got)
	}
}
