// Package codec adapts finished flatbuffers to the Marshal/Unmarshal shape
// used by transports. Codec is registered with grpc under the name
// "flatbuffers"; ZstdCodec wraps any codec with zstd compression.
package codec

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc/encoding"

	"github.com/blastbao/flatcore/flatbuffers"
	"github.com/blastbao/flatcore/log"
	"github.com/blastbao/flatcore/metrics"
)

// Name is the content-subtype under which Codec registers with grpc.
const Name = "flatbuffers"

func init() {
	encoding.RegisterCodec(New())
}

// Packer is implemented by object-API values that write themselves into a
// Builder and return the root table.
type Packer interface {
	Pack(b *flatbuffers.Builder) flatbuffers.TailOffsetT
}

// Initializer is implemented by table accessors that bind to a buffer.
type Initializer interface {
	Init(buf []byte, pos flatbuffers.Position)
}

// Verifiable is implemented by accessors that know their own schema. Verify
// is called after the root table passed the Verifier's structural checks.
type Verifiable interface {
	Verify(v *flatbuffers.Verifier, t flatbuffers.Table) error
}

type options struct {
	verify      bool
	verifier    flatbuffers.VerifierOptions
	builderSize int
}

// Option configures a Codec.
type Option func(*options)

// WithVerifierOptions sets the limits used to verify incoming buffers.
func WithVerifierOptions(opts flatbuffers.VerifierOptions) Option {
	return func(o *options) {
		o.verifier = opts
	}
}

// WithoutVerify binds incoming buffers without verifying them. Only use
// this for buffers from a trusted source.
func WithoutVerify() Option {
	return func(o *options) {
		o.verify = false
	}
}

// WithBuilderSize sets the initial size of builders used to pack Packer
// values.
func WithBuilderSize(n int) Option {
	return func(o *options) {
		o.builderSize = n
	}
}

// Codec implements grpc encoding.Codec for flatbuffers. It is safe for
// concurrent use.
type Codec struct {
	opts     options
	builders sync.Pool
}

var _ encoding.Codec = (*Codec)(nil)

// New returns a Codec. By default every incoming buffer is verified with
// flatbuffers.DefaultVerifierOptions.
func New(opts ...Option) *Codec {
	c := &Codec{
		opts: options{
			verify:      true,
			verifier:    flatbuffers.DefaultVerifierOptions(),
			builderSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	c.builders.New = func() interface{} {
		return flatbuffers.NewBuilder(c.opts.builderSize)
	}
	return c
}

// Name returns the name of the Codec implementation.
func (c *Codec) Name() string {
	return Name
}

// Marshal returns the wire format of v, which is either a finished
// *flatbuffers.Builder or a Packer.
//
// 对 *Builder 直接返回 FinishedBytes，不做拷贝，调用方在数据发送完成前不能 Reset 该 Builder；
// 对 Packer 则从池中取 Builder 打包，返回的是拷贝。
func (c *Codec) Marshal(v interface{}) (out []byte, err error) {
	defer func() {
		metrics.ObserveCodec(c.Name(), metrics.MarshalLabel, len(out), err)
	}()

	switch m := v.(type) {
	case *flatbuffers.Builder:
		if !m.Finished() {
			return nil, errors.Wrap(flatbuffers.ErrNotFinished, "codec: marshal builder")
		}
		observeBuilder(m)
		return m.FinishedBytes(), nil
	case Packer:
		return c.pack(m)
	default:
		return nil, errors.Newf("codec: cannot marshal %T, want *flatbuffers.Builder or Packer", v)
	}
}

func (c *Codec) pack(p Packer) (out []byte, err error) {
	b := c.builders.Get().(*flatbuffers.Builder)
	b.Reset()
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			out, err = nil, errors.Wrapf(e, "codec: pack %T", p)
		}
		c.builders.Put(b)
	}()

	b.Finish(p.Pack(b))
	observeBuilder(b)
	return bytes.Clone(b.FinishedBytes()), nil
}

func observeBuilder(b *flatbuffers.Builder) {
	st := b.Stats()
	metrics.ObserveVtables(st.VtablesWritten, st.VtablesReused)
}

// Unmarshal binds v, which must be an Initializer, to the root table of
// data. v keeps referencing data.
func (c *Codec) Unmarshal(data []byte, v interface{}) (err error) {
	defer func() {
		metrics.ObserveCodec(c.Name(), metrics.UnmarshalLabel, len(data), err)
	}()

	fb, ok := v.(Initializer)
	if !ok {
		return errors.Newf("codec: cannot unmarshal into %T, want Initializer", v)
	}

	var root flatbuffers.Table
	if c.opts.verify {
		root, err = c.verify(data, v)
	} else {
		root, err = flatbuffers.GetRoot(data)
	}
	if err != nil {
		return errors.Wrapf(err, "codec: unmarshal %T", v)
	}
	fb.Init(data, root.Pos)
	return nil
}

func (c *Codec) verify(data []byte, v interface{}) (flatbuffers.Table, error) {
	ver := flatbuffers.NewVerifier(data, c.opts.verifier)
	root, err := ver.Root()
	if err == nil {
		if hook, ok := v.(Verifiable); ok {
			err = hook.Verify(ver, root)
		}
	}
	if err != nil {
		metrics.VerifyFailures.Inc()
		log.L().Warn("codec: rejected buffer",
			zap.Int("size", len(data)),
			zap.String("type", fmt.Sprintf("%T", v)),
			zap.Error(err))
		return flatbuffers.Table{}, err
	}
	return root, nil
}
