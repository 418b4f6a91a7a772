package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"

	"github.com/blastbao/flatcore/codec"
	"github.com/blastbao/flatcore/flatbuffers"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 64, cfg.Verifier.Options().MaxDepth)
	assert.Len(t, cfg.CodecOptions(), 2)
}

func TestLoadFile(t *testing.T) {
	yaml := writeFile(t, "flatcore.yaml", `
builder:
  initial-size: 256
verifier:
  max-depth: 8
  strict-alignment: true
codec:
  verify: false
  zstd-min-size: 128
log:
  level: debug
  file:
    filename: flatcore.log
`)
	cfg, err := Load(yaml, nil)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Builder.InitialSize)
	assert.Equal(t, 8, cfg.Verifier.MaxDepth)
	assert.Equal(t, Default().Verifier.MaxTables, cfg.Verifier.MaxTables)
	assert.True(t, cfg.Verifier.StrictAlignment)
	assert.False(t, cfg.Codec.Verify)
	assert.Len(t, cfg.CodecOptions(), 3)
	assert.Equal(t, 128, cfg.ZstdOptions().MinSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "flatcore.log", cfg.Log.File.Filename)

	json := writeFile(t, "flatcore.json", `{"verifier": {"max-tables": 3}}`)
	cfg, err = Load(json, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Verifier.MaxTables)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "flatcore.yaml", "verifier:\n  max-depth: 8\n  max-tables: 9\n")
	t.Setenv("FLATCORE_VERIFIER_MAX_TABLES", "10")
	t.Setenv("FLATCORE_CODEC_ZSTD_MIN_SIZE", "11")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--max-tables", "12", "--no-verify", "--strict-align"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Verifier.MaxDepth, "file")
	assert.Equal(t, 12, cfg.Verifier.MaxTables, "flag beats env and file")
	assert.Equal(t, 11, cfg.Codec.ZstdMinSize, "env")
	assert.True(t, cfg.Verifier.StrictAlignment)
	assert.False(t, cfg.Codec.Verify)
	assert.Equal(t, Default().Builder.InitialSize, cfg.Builder.InitialSize, "unchanged flag keeps default")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "flatcore.toml", "x = 1"), nil)
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "verifier:\n  max-depth: -1\n"), nil)
	assert.ErrorContains(t, err, "max-depth")

	_, err = Load(writeFile(t, "bad.yaml", "builder:\n  initial-size: -5\n"), nil)
	assert.ErrorContains(t, err, "initial-size")
}

func TestValidateBufferSize(t *testing.T) {
	cfg := Default()
	cfg.Builder.InitialSize = flatbuffers.MaxBufferSize
	assert.NoError(t, cfg.Validate())

	cfg.Builder.InitialSize = flatbuffers.MaxBufferSize + 1
	assert.ErrorContains(t, cfg.Validate(), "initial-size")
}

func TestRegisterCodecs(t *testing.T) {
	cfg := Default()
	cfg.Codec.ZstdMinSize = 1
	z, err := cfg.RegisterCodecs()
	require.NoError(t, err)
	defer z.Close()

	assert.Same(t, z, encoding.GetCodec(codec.Name+"-zstd"))
	fb, ok := encoding.GetCodec(codec.Name).(*codec.Codec)
	require.True(t, ok)

	b := flatbuffers.NewBuilder(0)
	b.StartTable(1)
	flatbuffers.AddField(b, 0, int32(7), 0)
	b.Finish(b.EndTable())

	framed, err := z.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, byte(1), framed[0], "payload above zstd-min-size is compressed")
	var got flatbuffers.Table
	require.NoError(t, z.Unmarshal(framed, &tableRef{&got}))
	v, err := flatbuffers.ReadField(&got, 0, int32(0))
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)

	got = flatbuffers.Table{}
	require.NoError(t, fb.Unmarshal(b.FinishedBytes(), &tableRef{&got}))
	assert.Equal(t, b.FinishedBytes(), got.Bytes)
}

type tableRef struct{ t *flatbuffers.Table }

func (r *tableRef) Init(buf []byte, pos flatbuffers.Position) {
	r.t.Bytes = buf
	r.t.Pos = pos
}
