package codec

import (
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"google.golang.org/grpc/encoding"

	"github.com/blastbao/flatcore/log"
	"github.com/blastbao/flatcore/metrics"
)

// 帧格式：1 字节标志 + 负载。
//   - frameRaw ：负载是内层 codec 的原始输出（小于 MinSize 时不压缩）；
//   - frameZstd：负载是一个 zstd frame。
const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// ZstdOptions configures a ZstdCodec.
type ZstdOptions struct {
	// MinSize is the smallest payload that is compressed. Smaller payloads
	// are sent raw.
	MinSize int
	// MaxDecodedSize bounds the memory a single decompression may use.
	// Zero means the zstd default.
	MaxDecodedSize uint64
	// Concurrency of the zstd encoder. Zero means GOMAXPROCS.
	Concurrency int
}

// ZstdCodec wraps another codec and compresses its output with
// github.com/klauspost/compress/zstd.
//
// 持有独立的 encoder/decoder，EncodeAll / DecodeAll 可以并发调用。
type ZstdCodec struct {
	inner encoding.Codec
	opts  ZstdOptions
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

var _ encoding.Codec = (*ZstdCodec)(nil)

// NewZstdCodec returns a ZstdCodec around inner.
func NewZstdCodec(inner encoding.Codec, opts ZstdOptions) (*ZstdCodec, error) {
	if opts.MinSize < 0 {
		opts.MinSize = 0
	}

	eopts := []zstd.EOption{zstd.WithZeroFrames(true)}
	if opts.Concurrency > 0 {
		eopts = append(eopts, zstd.WithEncoderConcurrency(opts.Concurrency))
	}
	enc, err := zstd.NewWriter(nil, eopts...)
	if err != nil {
		return nil, errors.Wrap(err, "codec: new zstd encoder")
	}

	var dopts []zstd.DOption
	if opts.MaxDecodedSize > 0 {
		dopts = append(dopts, zstd.WithDecoderMaxMemory(opts.MaxDecodedSize))
	}
	dec, err := zstd.NewReader(nil, dopts...)
	if err != nil {
		_ = enc.Close()
		return nil, errors.Wrap(err, "codec: new zstd decoder")
	}

	return &ZstdCodec{inner: inner, opts: opts, enc: enc, dec: dec}, nil
}

// Name returns the inner codec's name with a "-zstd" suffix.
func (c *ZstdCodec) Name() string {
	return c.inner.Name() + "-zstd"
}

// Marshal encodes v with the inner codec and compresses the result when it
// is at least MinSize bytes long.
func (c *ZstdCodec) Marshal(v interface{}) (out []byte, err error) {
	defer func() {
		metrics.ObserveCodec(c.Name(), metrics.MarshalLabel, len(out), err)
	}()
	if c.enc == nil {
		return nil, zstd.ErrEncoderClosed
	}

	raw, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(raw) < c.opts.MinSize {
		out = make([]byte, 0, len(raw)+1)
		out = append(out, frameRaw)
		return append(out, raw...), nil
	}
	return c.enc.EncodeAll(raw, []byte{frameZstd}), nil
}

// Unmarshal decompresses data if needed and decodes it into v with the
// inner codec.
func (c *ZstdCodec) Unmarshal(data []byte, v interface{}) (err error) {
	defer func() {
		metrics.ObserveCodec(c.Name(), metrics.UnmarshalLabel, len(data), err)
	}()
	if c.dec == nil {
		return zstd.ErrDecoderClosed
	}
	if len(data) == 0 {
		return errors.New("codec: empty zstd frame")
	}

	switch data[0] {
	case frameRaw:
		return c.inner.Unmarshal(data[1:], v)
	case frameZstd:
		plain, err := c.dec.DecodeAll(data[1:], nil)
		if err != nil {
			log.L().Warn("codec: zstd decode failed", zap.Int("size", len(data)), zap.Error(err))
			return errors.Wrap(err, "codec: zstd decode")
		}
		return c.inner.Unmarshal(plain, v)
	default:
		return errors.Newf("codec: unknown frame flag %d", data[0])
	}
}

// Close releases the encoder and decoder. Later calls return
// zstd.ErrEncoderClosed or zstd.ErrDecoderClosed.
func (c *ZstdCodec) Close() {
	if c.enc != nil {
		_ = c.enc.Close()
		c.enc = nil
	}
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
}
