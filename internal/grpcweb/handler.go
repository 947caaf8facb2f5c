// Package grpcweb lets browsers call the gRPC service over HTTP/1.1 using
// the gRPC-Web binary protocol.
package grpcweb

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"medwise-api/internal/middleware"
)

const (
	contentType = "application/grpc-web+proto"
	maxBody     = 4 << 20

	frameData    byte = 0x00
	frameTrailer byte = 0x80
)

// Bridge translates gRPC-Web requests into unary gRPC calls on conn.
// Payloads are passed through untouched.
type Bridge struct {
	conn   grpc.ClientConnInterface
	closer io.Closer
	logger *slog.Logger
}

// Dial connects to the gRPC server at addr (e.g. "localhost:50051").
func Dial(addr string, log *slog.Logger) (*Bridge, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	b := New(conn, log)
	b.closer = conn
	return b, nil
}

func New(conn grpc.ClientConnInterface, log *slog.Logger) *Bridge {
	return &Bridge{conn: conn, logger: log.With("module", "grpcweb")}
}

func (b *Bridge) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc-web") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc-web-text") {
		http.Error(w, "not grpc-web", http.StatusUnsupportedMediaType)
		return
	}
	b.forward(w, r)
}

func (b *Bridge) forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, codes.InvalidArgument, "read body failed")
		return
	}
	// grpc-web frame: 1-byte flag + 4-byte big-endian length + protobuf
	if len(body) < 5 {
		writeError(w, codes.InvalidArgument, "body too short")
		return
	}
	msgLen := binary.BigEndian.Uint32(body[1:5])
	if uint64(msgLen)+5 > uint64(len(body)) {
		writeError(w, codes.InvalidArgument, "incomplete frame")
		return
	}
	payload := body[5 : 5+msgLen]

	md := metadata.MD{}
	if v := r.Header.Get("Authorization"); v != "" {
		md.Set("authorization", v)
	} else if c, err := r.Cookie(middleware.AccessCookie); err == nil && c.Value != "" {
		md.Set("authorization", "Bearer "+c.Value)
	}
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		md.Set(middleware.ForwardedFor, h)
	}
	ctx := metadata.NewOutgoingContext(r.Context(), md)

	resp := &rawMsg{}
	err = b.conn.Invoke(ctx, r.URL.Path, &rawMsg{data: payload}, resp, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		st, _ := status.FromError(err)
		if st.Code() == codes.Internal || st.Code() == codes.Unavailable {
			b.logger.Error("grpc-web call failed", "method", r.URL.Path, "code", st.Code().String(), "error", st.Message())
		}
		writeError(w, st.Code(), st.Message())
		return
	}
	writeSuccess(w, resp.data)
}

// rawMsg wraps raw protobuf bytes.
type rawMsg struct{ data []byte }

// rawCodec passes bytes through without marshal/unmarshal.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*rawMsg)
	if !ok {
		return nil, fmt.Errorf("grpcweb: unexpected message %T", v)
	}
	return m.data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*rawMsg)
	if !ok {
		return fmt.Errorf("grpcweb: unexpected message %T", v)
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return "proto" }

func frame(flag byte, data []byte) []byte {
	f := make([]byte, 5+len(data))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(data)))
	copy(f[5:], data)
	return f
}

func writeError(w http.ResponseWriter, code codes.Code, msg string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	trailer := fmt.Sprintf("grpc-status:%d\r\ngrpc-message:%s\r\n", code, encodeMessage(msg))
	_, _ = w.Write(frame(frameTrailer, []byte(trailer)))
}

// encodeMessage percent-encodes grpc-message: printable ASCII other than
// '%' passes through, every other byte becomes %XX.
func encodeMessage(msg string) string {
	var b strings.Builder
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c >= ' ' && c <= '~' && c != '%' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func writeSuccess(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame(frameData, data))
	_, _ = w.Write(frame(frameTrailer, []byte("grpc-status:0\r\n")))
}
