package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pietroferretti/ctftools/internal/analysis"
	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/logging"
	"github.com/pietroferretti/ctftools/internal/observability/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// DefaultStreamLimit is the number of keys EnumerateKeys sends when the
	// request carries no limit.
	DefaultStreamLimit = 16
	// DefaultMaxStreamLimit caps the limit a client may request.
	DefaultMaxStreamLimit = 1024
)

// Analyzer implements AnalyzerServer on top of the analysis package.
type Analyzer struct {
	defaults  analysis.Options
	maxStream int
	logger    *slog.Logger
	audit     *logging.AuditLogger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithDefaults sets the analysis options requests start from.
func WithDefaults(opts analysis.Options) AnalyzerOption {
	return func(a *Analyzer) {
		a.defaults = opts
	}
}

// WithMaxStreamLimit caps the number of keys a single EnumerateKeys call
// may return.
func WithMaxStreamLimit(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxStream = n
		}
	}
}

// WithLogger overrides the diagnostic logger.
func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithAuditLogger overrides the audit logger.
func WithAuditLogger(l *logging.AuditLogger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.audit = l
		}
	}
}

// NewAnalyzer constructs an analyzer service.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		maxStream: DefaultMaxStreamLimit,
		logger:    slog.New(slog.DiscardHandler),
		audit:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.defaults.Logger == nil {
		a.defaults.Logger = a.logger
	}
	return a
}

var _ AnalyzerServer = (*Analyzer)(nil)

// options merges the per-request overrides into the analyzer defaults.
func (a *Analyzer) options(req *structpb.Struct) (analysis.Options, error) {
	opts := a.defaults
	var err error
	if opts.MaxComparisons, err = intField(req, "max_comparisons", opts.MaxComparisons); err != nil {
		return opts, err
	}
	if opts.TopN, err = intField(req, "top_n", opts.TopN); err != nil {
		return opts, err
	}
	if opts.MinLength, err = intField(req, "min_length", opts.MinLength); err != nil {
		return opts, err
	}
	if opts.MaxLength, err = intField(req, "max_length", opts.MaxLength); err != nil {
		return opts, err
	}
	if opts.KeyLength, err = intField(req, "key_length", 0); err != nil {
		return opts, err
	}
	if opts.KeyLength < 0 {
		return opts, status.Error(codes.InvalidArgument, "key_length must not be negative")
	}

	chars, err := bytesField(req, "chars")
	if err != nil {
		return opts, err
	}
	name, err := stringField(req, "charset")
	if err != nil {
		return opts, err
	}
	switch {
	case len(chars) > 0:
		opts.Charset = analysis.NewCharset("custom", chars)
	case name != "":
		cs, err := analysis.LookupCharset(name)
		if err != nil {
			return opts, status.Error(codes.InvalidArgument, err.Error())
		}
		opts.Charset = cs
	}

	combinerName, err := stringField(req, "combiner")
	if err != nil {
		return opts, err
	}
	if combinerName != "" {
		c, err := cipher.LookupCombiner(combinerName)
		if err != nil {
			return opts, status.Error(codes.InvalidArgument, err.Error())
		}
		opts.Combiner = c
	}
	if opts.Combiner == nil {
		opts.Combiner = cipher.Default()
	}
	return opts, nil
}

// keyLength returns opts.KeyLength or estimates it.
func keyLength(ctx context.Context, ct []byte, opts analysis.Options) (int, error) {
	if opts.KeyLength > 0 {
		return opts.KeyLength, nil
	}
	return analysis.FindKeyLength(ctx, ct, opts)
}

func (a *Analyzer) emit(ctx context.Context, event logging.AuditEvent) {
	if event.SessionID == "" {
		event.SessionID = requestID(ctx)
	}
	if err := a.audit.Emit(event); err != nil {
		a.logger.Warn("emit audit event", "event", event.EventType, "error", err)
	}
}

func scoresValue(scores []analysis.LengthScore) []any {
	out := make([]any, len(scores))
	for i, s := range scores {
		out[i] = map[string]any{"length": s.Length, "score": s.Score}
	}
	return out
}

func (a *Analyzer) ScoreKeyLengths(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ct, err := requireCiphertext(req)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(req)
	if err != nil {
		return nil, err
	}
	scores, err := analysis.ScoreAllLengths(ctx, ct, opts)
	metrics.RecordAnalysis("score_lengths", outcome(err), len(ct))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"scores": scoresValue(scores)})
}

func (a *Analyzer) ResolveKeyLength(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ct, err := requireCiphertext(req)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(req)
	if err != nil {
		return nil, err
	}
	scores, err := analysis.ScoreAllLengths(ctx, ct, opts)
	var length int
	if err == nil {
		length, err = analysis.ResolveKeyLength(scores, opts.TopN)
	}
	metrics.RecordAnalysis("resolve_key_length", outcome(err), len(ct))
	if err != nil {
		return nil, toStatus(err)
	}

	votes := analysis.GCDVotes(scores, opts.TopN)
	voteList := make([]any, len(votes))
	for i, v := range votes {
		voteList[i] = map[string]any{"gcd": v.GCD, "votes": v.Votes}
	}
	a.emit(ctx, logging.AuditEvent{
		EventType: logging.EventKeyLengthResolved,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"key_length": length, "input_bytes": len(ct)},
	})
	return newStruct(map[string]any{"key_length": length, "votes": voteList})
}

func (a *Analyzer) FindKeyCandidates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ct, err := requireCiphertext(req)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(req)
	if err != nil {
		return nil, err
	}
	length, err := keyLength(ctx, ct, opts)
	var candidates [][]byte
	if err == nil {
		candidates, err = analysis.FindKeyCandidates(ctx, ct, length, opts.Charset, opts.Combiner, opts)
	}
	metrics.RecordAnalysis("key_candidates", outcome(err), len(ct))
	if err != nil {
		return nil, toStatus(err)
	}

	columns := make([]any, len(candidates))
	for i, c := range candidates {
		columns[i] = c
	}
	keySpace := analysis.KeySpaceSize(candidates)
	a.emit(ctx, logging.AuditEvent{
		EventType: logging.EventKeyCandidates,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"key_length": length, "key_space": keySpace.String()},
	})
	return newStruct(map[string]any{
		"key_length": length,
		"candidates": columns,
		"key_space":  keySpace.String(),
	})
}

func (a *Analyzer) RecoverEmbeddedKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ct, err := requireCiphertext(req)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(req)
	if err != nil {
		return nil, err
	}
	if opts.KeyLength == 0 {
		return nil, status.Error(codes.InvalidArgument, "key_length is required")
	}
	keyIndex, err := intField(req, "key_index", 0)
	if err != nil {
		return nil, err
	}
	seedIndex, err := intField(req, "seed_index", 0)
	if err != nil {
		return nil, err
	}
	seed, err := intField(req, "seed", -1)
	if err != nil {
		return nil, err
	}
	if seed < 0 || seed > 255 {
		return nil, status.Error(codes.InvalidArgument, "seed must be a byte value in [0, 255]")
	}

	key, err := analysis.RecoverEmbeddedKey(ct, opts.KeyLength, keyIndex, byte(seed), seedIndex, opts.Combiner)
	metrics.RecordAnalysis("embedded_key", outcome(err), len(ct))
	if err != nil {
		a.emit(ctx, logging.AuditEvent{
			EventType: logging.EventKeyRecoveryFailed,
			Decision:  logging.DecisionDeny,
			Reason:    err.Error(),
			Metadata:  map[string]any{"key_length": opts.KeyLength, "known": key.KnownCount()},
		})
		return nil, toStatus(err)
	}
	keyBytes, _ := key.Bytes()
	a.emit(ctx, logging.AuditEvent{
		EventType: logging.EventKeyRecovered,
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"key_length": len(keyBytes), "method": "embedded"},
	})
	return newStruct(map[string]any{
		"key":         keyBytes,
		"key_literal": key.String(),
	})
}

func (a *Analyzer) EnumerateKeys(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	ct, err := requireCiphertext(req)
	if err != nil {
		return err
	}
	opts, err := a.options(req)
	if err != nil {
		return err
	}
	limit, err := intField(req, "limit", DefaultStreamLimit)
	if err != nil {
		return err
	}
	if limit < 1 || limit > a.maxStream {
		return status.Errorf(codes.InvalidArgument, "limit must be in [1, %d]", a.maxStream)
	}

	length, err := keyLength(ctx, ct, opts)
	var candidates [][]byte
	if err == nil {
		candidates, err = analysis.FindKeyCandidates(ctx, ct, length, opts.Charset, opts.Combiner, opts)
	}
	metrics.RecordAnalysis("enumerate_keys", outcome(err), len(ct))
	if err != nil {
		return toStatus(err)
	}

	metrics.StreamOpened()
	defer metrics.StreamClosed()

	sent := 0
	defer func() { metrics.RecordKeysStreamed(sent) }()
	for key := range analysis.EnumerateKeys(candidates) {
		if err := ctx.Err(); err != nil {
			return toStatus(err)
		}
		plaintext := cipher.Decrypt(ct, key, opts.Combiner)
		msg, err := newStruct(map[string]any{
			"rank":  sent,
			"key":   key,
			"score": analysis.EnglishScore(plaintext),
		})
		if err != nil {
			return err
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
		sent++
		if sent >= limit {
			break
		}
	}
	if sent == 0 {
		return status.Errorf(codes.NotFound, "key length %d: %v", length, analysis.ErrNotFound)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// toStatus maps analysis errors onto gRPC status codes. Errors that already
// carry a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, analysis.ErrNoKeyLengthFound), errors.Is(err, analysis.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, analysis.ErrInvalidConfiguration), errors.Is(err, analysis.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, analysis.ErrIncompleteKeyRecovery):
		code = codes.FailedPrecondition
	default:
		return status.Error(codes.Internal, "analysis failed")
	}
	return status.Error(code, err.Error())
}
