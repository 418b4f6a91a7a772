// Package config loads flatcore settings from a YAML/JSON file, FLATCORE_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"google.golang.org/grpc/encoding"

	"github.com/blastbao/flatcore/codec"
	"github.com/blastbao/flatcore/flatbuffers"
	"github.com/blastbao/flatcore/log"
)

// EnvPrefix is prepended to every environment variable, e.g.
// FLATCORE_VERIFIER_MAX_DEPTH.
const EnvPrefix = "FLATCORE"

// Config 是所有可配置项的集合，字段标签与配置文件中的 key 一一对应。
type Config struct {
	Builder  BuilderConfig  `mapstructure:"builder" json:"builder"`
	Verifier VerifierConfig `mapstructure:"verifier" json:"verifier"`
	Codec    CodecConfig    `mapstructure:"codec" json:"codec"`
	Log      log.Config     `mapstructure:"log" json:"log"`
}

type BuilderConfig struct {
	// InitialSize 是 Builder 初始分配的字节数，不足时按 2 倍扩容。
	InitialSize int `mapstructure:"initial-size" json:"initial-size"`
}

type VerifierConfig struct {
	MaxDepth        int  `mapstructure:"max-depth" json:"max-depth"`
	MaxTables       int  `mapstructure:"max-tables" json:"max-tables"`
	StrictAlignment bool `mapstructure:"strict-alignment" json:"strict-alignment"`
}

// Options converts c to flatbuffers.VerifierOptions.
func (c VerifierConfig) Options() flatbuffers.VerifierOptions {
	return flatbuffers.VerifierOptions{
		MaxDepth:        c.MaxDepth,
		MaxTables:       c.MaxTables,
		StrictAlignment: c.StrictAlignment,
	}
}

type CodecConfig struct {
	// Verify 为 false 时跳过对输入 buffer 的校验，只适用于可信来源。
	Verify             bool   `mapstructure:"verify" json:"verify"`
	ZstdMinSize        int    `mapstructure:"zstd-min-size" json:"zstd-min-size"`
	ZstdMaxDecodedSize uint64 `mapstructure:"zstd-max-decoded-size" json:"zstd-max-decoded-size"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	vopts := flatbuffers.DefaultVerifierOptions()
	return &Config{
		Builder: BuilderConfig{InitialSize: 1024},
		Verifier: VerifierConfig{
			MaxDepth:        vopts.MaxDepth,
			MaxTables:       vopts.MaxTables,
			StrictAlignment: vopts.StrictAlignment,
		},
		Codec: CodecConfig{
			Verify:             true,
			ZstdMinSize:        4096,
			ZstdMaxDecodedSize: 64 << 20,
		},
		Log: log.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	switch {
	case c.Builder.InitialSize < 0:
		return errors.Newf("config: builder.initial-size must not be negative, got %d", c.Builder.InitialSize)
	case c.Builder.InitialSize > flatbuffers.MaxBufferSize:
		return errors.Newf("config: builder.initial-size %d exceeds %d", c.Builder.InitialSize, flatbuffers.MaxBufferSize)
	case c.Verifier.MaxDepth < 0:
		return errors.Newf("config: verifier.max-depth must not be negative, got %d", c.Verifier.MaxDepth)
	case c.Verifier.MaxTables < 0:
		return errors.Newf("config: verifier.max-tables must not be negative, got %d", c.Verifier.MaxTables)
	case c.Codec.ZstdMinSize < 0:
		return errors.Newf("config: codec.zstd-min-size must not be negative, got %d", c.Codec.ZstdMinSize)
	}
	return nil
}

// CodecOptions returns the codec options described by c.
func (c *Config) CodecOptions() []codec.Option {
	opts := []codec.Option{
		codec.WithVerifierOptions(c.Verifier.Options()),
		codec.WithBuilderSize(c.Builder.InitialSize),
	}
	if !c.Codec.Verify {
		opts = append(opts, codec.WithoutVerify())
	}
	return opts
}

// ZstdOptions returns the zstd codec options described by c.
func (c *Config) ZstdOptions() codec.ZstdOptions {
	return codec.ZstdOptions{
		MinSize:        c.Codec.ZstdMinSize,
		MaxDecodedSize: c.Codec.ZstdMaxDecodedSize,
	}
}

// NewCodecs builds the flatbuffers codec described by c and the zstd codec
// wrapping it. The caller closes the ZstdCodec.
func (c *Config) NewCodecs() (*codec.Codec, *codec.ZstdCodec, error) {
	fb := codec.New(c.CodecOptions()...)
	z, err := codec.NewZstdCodec(fb, c.ZstdOptions())
	if err != nil {
		return nil, nil, err
	}
	return fb, z, nil
}

// RegisterCodecs registers the codecs built by NewCodecs with grpc, replacing
// the default "flatbuffers" codec. Like encoding.RegisterCodec it must only
// be called during initialization.
func (c *Config) RegisterCodecs() (*codec.ZstdCodec, error) {
	fb, z, err := c.NewCodecs()
	if err != nil {
		return nil, err
	}
	encoding.RegisterCodec(fb)
	encoding.RegisterCodec(z)
	return z, nil
}

// flagKeys 记录命令行参数与配置 key 的对应关系。
var flagKeys = map[string]string{
	"initial-size":  "builder.initial-size",
	"max-depth":     "verifier.max-depth",
	"max-tables":    "verifier.max-tables",
	"strict-align":  "verifier.strict-alignment",
	"no-verify":     "",
	"zstd-min-size": "codec.zstd-min-size",
	"log-level":     "log.level",
}

// AddFlags registers the command line flags understood by Load on fs.
func AddFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path of a YAML or JSON config file")
	fs.Int("initial-size", d.Builder.InitialSize, "initial builder buffer size in bytes")
	fs.Int("max-depth", d.Verifier.MaxDepth, "maximum table nesting accepted by the verifier")
	fs.Int("max-tables", d.Verifier.MaxTables, "maximum number of tables accepted by the verifier")
	fs.Bool("strict-align", d.Verifier.StrictAlignment, "reject misaligned scalars and offsets")
	fs.Bool("no-verify", false, "skip verification of incoming buffers")
	fs.Int("zstd-min-size", d.Codec.ZstdMinSize, "smallest payload compressed by the zstd codec")
	fs.String("log-level", d.Log.Level, "log level")
}

// Load reads the configuration. path may be empty, in which case the
// "config" flag of fs, if any, names the file. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if path == "" {
			if f := fs.Lookup("config"); f != nil {
				path = f.Value.String()
			}
		}
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || key == "" {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "config: bind flag --%s", name)
			}
		}
		if f := fs.Lookup("no-verify"); f != nil && f.Changed && f.Value.String() == "true" {
			v.Set("codec.verify", false)
		}
	}

	if path != "" {
		if err := readFile(v, path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	case ".json":
		v.SetConfigType("json")
	default:
		return errors.Newf("config: unsupported file type %q", ext)
	}
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "config: read %s", path)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("builder.initial-size", d.Builder.InitialSize)
	v.SetDefault("verifier.max-depth", d.Verifier.MaxDepth)
	v.SetDefault("verifier.max-tables", d.Verifier.MaxTables)
	v.SetDefault("verifier.strict-alignment", d.Verifier.StrictAlignment)
	v.SetDefault("codec.verify", d.Codec.Verify)
	v.SetDefault("codec.zstd-min-size", d.Codec.ZstdMinSize)
	v.SetDefault("codec.zstd-max-decoded-size", d.Codec.ZstdMaxDecodedSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.stdout", d.Log.Stdout)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.disable-caller", d.Log.DisableCaller)
	v.SetDefault("log.disable-stacktrace", d.Log.DisableStacktrace)
	v.SetDefault("log.file.rootpath", d.Log.File.RootPath)
	v.SetDefault("log.file.filename", d.Log.File.Filename)
	v.SetDefault("log.file.max-size", d.Log.File.MaxSize)
	v.SetDefault("log.file.max-days", d.Log.File.MaxDays)
	v.SetDefault("log.file.max-backups", d.Log.File.MaxBackups)
}
