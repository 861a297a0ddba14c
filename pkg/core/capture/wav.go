package capture

import "encoding/binary"

// EncodeWAV wraps raw little-endian 16-bit PCM in a 44-byte WAV header so
// the blob is self-describing for the transcription service.
func EncodeWAV(pcm []byte, format Format) []byte {
	byteRate := format.BytesPerSecond()
	blockAlign := format.Channels * bitsPerSample / 8

	header := make([]byte, 44)

	// RIFF chunk descriptor
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")

	// fmt sub-chunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // sub-chunk size for PCM
	binary.LittleEndian.PutUint16(header[20:22], 1)  // audio format 1 = PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	// data sub-chunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	return append(header, pcm...)
}
