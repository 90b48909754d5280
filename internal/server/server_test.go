package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pietroferretti/ctftools/internal/analysis"
	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/config"
	"github.com/pietroferretti/ctftools/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

var plaintext = []byte("It was the best of times, it was the worst of times, it was the age of wisdom, " +
	"it was the age of foolishness, it was the epoch of belief, it was the epoch of incredulity, " +
	"it was the season of Light, it was the season of Darkness, it was the spring of hope, " +
	"it was the winter of despair, we had everything before us, we had nothing before us, " +
	"we were all going direct to Heaven, we were all going direct the other way. " +
	"In short, the period was so far like the present period, that some of its noisiest " +
	"authorities insisted on its being received, for good or for evil, in the superlative degree of comparison only.")

func testServerConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.RateLimit = 0
	return cfg
}

func startServer(t *testing.T, cfg config.ServerConfig, audit *logging.AuditLogger, opts ...AnalyzerOption) *Client {
	t.Helper()
	if audit == nil {
		audit = logging.Discard()
	}
	opts = append(opts, WithAuditLogger(audit))
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(NewAnalyzer(opts...), audit, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, srv, lis, cfg.MaxConns)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Error("server did not stop")
		}
	})
	return NewClient(conn)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func decodeBytes(t *testing.T, v *structpb.Value) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(v.GetStringValue())
	require.NoError(t, err)
	return b
}

func TestResolveKeyLength(t *testing.T) {
	client := startServer(t, testServerConfig(), nil)
	ct := cipher.Encrypt(plaintext, []byte("ICE"), nil)

	resp, err := client.ResolveKeyLength(testContext(t), map[string]any{"ciphertext": ct})
	require.NoError(t, err)
	assert.Equal(t, float64(3), resp.GetFields()["key_length"].GetNumberValue())
	votes := resp.GetFields()["votes"].GetListValue().GetValues()
	require.NotEmpty(t, votes)
	assert.Equal(t, float64(3), votes[0].GetStructValue().GetFields()["gcd"].GetNumberValue())
}

func TestScoreKeyLengths(t *testing.T) {
	client := startServer(t, testServerConfig(), nil)
	ct := cipher.Encrypt(plaintext, []byte("ICE"), nil)

	resp, err := client.ScoreKeyLengths(testContext(t), map[string]any{
		"ciphertext": ct,
		"min_length": 2,
		"max_length": 12,
	})
	require.NoError(t, err)
	scores := resp.GetFields()["scores"].GetListValue().GetValues()
	require.Len(t, scores, 11)
	prev := -1.0
	for _, s := range scores {
		fields := s.GetStructValue().GetFields()
		length := fields["length"].GetNumberValue()
		assert.GreaterOrEqual(t, length, float64(2))
		assert.LessOrEqual(t, length, float64(12))
		score := fields["score"].GetNumberValue()
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestFindKeyCandidates(t *testing.T) {
	client := startServer(t, testServerConfig(), nil)
	key := []byte("ICE")
	ct := cipher.Encrypt(plaintext, key, nil)

	resp, err := client.FindKeyCandidates(testContext(t), map[string]any{
		"ciphertext": ct,
		"key_length": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), resp.GetFields()["key_length"].GetNumberValue())
	columns := resp.GetFields()["candidates"].GetListValue().GetValues()
	require.Len(t, columns, len(key))
	for i, col := range columns {
		cands := decodeBytes(t, col)
		require.NotEmpty(t, cands)
		assert.Equal(t, key[i], cands[0], "column %d", i)
	}
	assert.NotEmpty(t, resp.GetFields()["key_space"].GetStringValue())
}

func TestEnumerateKeysStreamsBoundedKeys(t *testing.T) {
	client := startServer(t, testServerConfig(), nil)
	ct := cipher.Encrypt(plaintext, []byte("ICE"), nil)

	stream, err := client.EnumerateKeys(testContext(t), map[string]any{
		"ciphertext": ct,
		"limit":      2,
	})
	require.NoError(t, err)

	var keys [][]byte
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, float64(len(keys)), msg.GetFields()["rank"].GetNumberValue())
		keys = append(keys, decodeBytes(t, msg.GetFields()["key"]))
	}
	require.Len(t, keys, 2)
	assert.Equal(t, []byte("ICE"), keys[0])
	assert.NotEqual(t, keys[0], keys[1])
}

func TestEnumerateKeysRejectsLimit(t *testing.T) {
	client := startServer(t, testServerConfig(), nil, WithMaxStreamLimit(4))
	ct := cipher.Encrypt(plaintext, []byte("ICE"), nil)

	for _, limit := range []int{0, 5} {
		stream, err := client.EnumerateKeys(testContext(t), map[string]any{
			"ciphertext": ct,
			"key_length": 3,
			"limit":      limit,
		})
		require.NoError(t, err)
		_, err = stream.Recv()
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "limit %d", limit)
	}
}

func TestEnumerateKeysNoCandidates(t *testing.T) {
	client := startServer(t, testServerConfig(), nil)
	stream, err := client.EnumerateKeys(testContext(t), map[string]any{
		"ciphertext": []byte{0x00, 0xff, 0x80, 0x7f},
		"key_length": 1,
		"charset":    "hex",
	})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRecoverEmbeddedKey(t *testing.T) {
	client := startServer(t, testServerConfig(), nil)
	key := []byte("XORKEY")
	plain := []byte("hello" + string(key) + " and some more text after the key")
	ct := cipher.Encrypt(plain, key, nil)

	resp, err := client.RecoverEmbeddedKey(testContext(t), map[string]any{
		"ciphertext": ct,
		"key_length": len(key),
		"key_index":  5,
		"seed":       int('h'),
		"seed_index": 0,
	})
	require.NoError(t, err)
	assert.Equal(t, key, decodeBytes(t, resp.GetFields()["key"]))
	assert.Equal(t, cipher.KeyFromBytes(key).String(), resp.GetFields()["key_literal"].GetStringValue())
}

func TestErrorCodes(t *testing.T) {
	client := startServer(t, testServerConfig(), nil)
	key := []byte("XORKEY")
	embedded := cipher.Encrypt([]byte("hi"+string(key)+" trailing plaintext"), key, nil)

	tests := []struct {
		name string
		call func(context.Context) error
		want codes.Code
	}{
		{
			name: "missing ciphertext",
			call: func(ctx context.Context) error {
				_, err := client.ScoreKeyLengths(ctx, map[string]any{})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "ciphertext not base64",
			call: func(ctx context.Context) error {
				_, err := client.ScoreKeyLengths(ctx, map[string]any{"ciphertext": "%%%"})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "unknown combiner",
			call: func(ctx context.Context) error {
				_, err := client.FindKeyCandidates(ctx, map[string]any{"ciphertext": embedded, "key_length": 2, "combiner": "rot13"})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "unknown charset",
			call: func(ctx context.Context) error {
				_, err := client.FindKeyCandidates(ctx, map[string]any{"ciphertext": embedded, "key_length": 2, "charset": "klingon"})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "fractional number",
			call: func(ctx context.Context) error {
				_, err := client.FindKeyCandidates(ctx, map[string]any{"ciphertext": embedded, "key_length": 2.5})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "too short to resolve",
			call: func(ctx context.Context) error {
				_, err := client.ResolveKeyLength(ctx, map[string]any{"ciphertext": []byte("abc")})
				return err
			},
			want: codes.NotFound,
		},
		{
			name: "embedded key aligned with period",
			call: func(ctx context.Context) error {
				_, err := client.RecoverEmbeddedKey(ctx, map[string]any{"ciphertext": embedded, "key_length": 6, "key_index": 6, "seed": int('h')})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "embedded key incomplete",
			call: func(ctx context.Context) error {
				_, err := client.RecoverEmbeddedKey(ctx, map[string]any{"ciphertext": embedded, "key_length": 6, "key_index": 2, "seed": int('h')})
				return err
			},
			want: codes.FailedPrecondition,
		},
		{
			name: "seed out of range",
			call: func(ctx context.Context) error {
				_, err := client.RecoverEmbeddedKey(ctx, map[string]any{"ciphertext": embedded, "key_length": 6, "key_index": 2, "seed": 300})
				return err
			},
			want: codes.InvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(testContext(t))
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err), "error: %v", err)
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	var buf bytes.Buffer
	audit, err := logging.NewAuditLogger("analyzer_test", logging.WithoutStdout(), logging.WithWriter(&buf))
	require.NoError(t, err)
	client := startServer(t, cfg, audit)
	ct := cipher.Encrypt(plaintext, []byte("ICE"), nil)

	_, err = client.ScoreKeyLengths(testContext(t), map[string]any{"ciphertext": ct})
	require.NoError(t, err)
	_, err = client.ScoreKeyLengths(testContext(t), map[string]any{"ciphertext": ct})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Contains(t, buf.String(), `"event_type":"rpc_denied"`)
}

func TestAuditTrail(t *testing.T) {
	var buf bytes.Buffer
	audit, err := logging.NewAuditLogger("analyzer_test", logging.WithoutStdout(), logging.WithWriter(&buf))
	require.NoError(t, err)
	client := startServer(t, testServerConfig(), audit)
	ct := cipher.Encrypt(plaintext, []byte("ICE"), nil)

	_, err = client.ResolveKeyLength(testContext(t), map[string]any{"ciphertext": ct})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"event_type":"key_length_resolved"`)
	assert.Contains(t, out, `"event_type":"rpc_call"`)
	assert.Contains(t, out, `"session_id":`)
	assert.Contains(t, out, `"method":"ResolveKeyLength"`)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{analysis.ErrNoKeyLengthFound, codes.NotFound},
		{analysis.ErrNotFound, codes.NotFound},
		{analysis.ErrInvalidConfiguration, codes.InvalidArgument},
		{analysis.ErrInvalidArgument, codes.InvalidArgument},
		{analysis.ErrIncompleteKeyRecovery, codes.FailedPrecondition},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toStatus(tt.err)), "%v", tt.err)
	}
	assert.NoError(t, toStatus(nil))
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testServerConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg, NewAnalyzer(), logging.Discard(), nil)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}
