package ivk

import (
	"net"
	"net/http"
	"time"
)

// newDefaultHTTPClient configures transport-level timeouts while keeping
// the overall request lifetime controlled by context deadlines.
//
// No http.Client.Timeout is set: the transcription stream is long-lived,
// and chunk uploads of large files legitimately take minutes. Session and
// slot requests get their deadline from withDefaultTimeout instead.
func newDefaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport}
}
