package gateway

import "github.com/docker/docker/api/types"

// execStream wraps a hijacked exec connection as an io.ReadCloser.
type execStream struct {
	hijack types.HijackedResponse
}

func (s *execStream) Read(p []byte) (int, error) {
	return s.hijack.Reader.Read(p)
}

// Close tears down the hijacked connection. Readers blocked in Read observe
// EOF afterwards, so no goroutine is left behind.
func (s *execStream) Close() error {
	s.hijack.Close()
	return nil
}
