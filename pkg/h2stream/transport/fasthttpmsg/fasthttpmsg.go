// Package fasthttpmsg adapts fasthttp's request/response types to the
// stream manager's opaque Message and to HPACK header lists, so a
// connection implementation can hand a *fasthttp.Request straight to
// stream.Manager.AcquireStream and encode/decode its headers with
// pkg/h2stream/hpack.
package fasthttpmsg

import (
	"github.com/valyala/fasthttp"

	"github.com/yourusername/h2stream/pkg/h2stream/hpack"
)

// RequestMessage wraps a *fasthttp.Request as a stream.Message. The
// pseudo-headers (:method, :scheme, :authority, :path) are synthesized
// from the request line; regular headers follow in their original order.
type RequestMessage struct {
	Req *fasthttp.Request
}

// HeaderList renders the request as an ordered HPACK header list,
// pseudo-headers first per RFC 7540 §8.1.2.3.
func (m RequestMessage) HeaderList() []hpack.Header {
	req := m.Req
	uri := req.URI()

	headers := make([]hpack.Header, 0, 4+req.Header.Len())
	headers = append(headers,
		hpack.Header{Name: ":method", Value: string(req.Header.Method())},
		hpack.Header{Name: ":scheme", Value: string(uri.Scheme())},
		hpack.Header{Name: ":authority", Value: string(uri.Host())},
		hpack.Header{Name: ":path", Value: string(uri.RequestURI())},
	)

	req.Header.VisitAll(func(key, value []byte) {
		headers = append(headers, hpack.Header{Name: string(key), Value: string(value)})
	})

	return headers
}

// ResponseMessage wraps a *fasthttp.Response as the decode-side target:
// ApplyHeader feeds decoded header fields back into the response as they
// arrive from hpack.Decoder, one field at a time, so the connection layer
// never has to buffer the whole header list itself.
type ResponseMessage struct {
	Resp *fasthttp.Response
}

// ApplyHeader writes one decoded header field into the response. The
// :status pseudo-header sets the status code instead of a header line.
func (m ResponseMessage) ApplyHeader(h hpack.Header) {
	if h.Name == ":status" {
		code := atoiStatus(h.Value)
		if code > 0 {
			m.Resp.SetStatusCode(code)
		}
		return
	}
	if len(h.Name) > 0 && h.Name[0] == ':' {
		return // unknown pseudo-header, not representable as a plain header line
	}
	m.Resp.Header.Add(h.Name, h.Value)
}

func atoiStatus(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
		n = n*10 + int(s[i]-'0')
	}
	return n
}
