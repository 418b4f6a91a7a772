// Command flatdump verifies flatbuffers files and prints the vtable layout
// of each root table.
//
//	flatdump [--config file] [--strict-align] [--max-depth n] [--zstd] [--metrics-file path] files...
//
// With --zstd the files hold frames written by the flatbuffers-zstd codec.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blastbao/flatcore/config"
	"github.com/blastbao/flatcore/flatbuffers"
	"github.com/blastbao/flatcore/log"
	"github.com/blastbao/flatcore/metrics"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "flatdump:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("flatdump", pflag.ContinueOnError)
	config.AddFlags(fs)
	sizePrefixed := fs.Bool("size-prefixed", false, "files carry a 4-byte size prefix")
	jobs := fs.Int("jobs", runtime.GOMAXPROCS(0), "number of files inspected concurrently")
	framed := fs.Bool("zstd", false, "files are frames of the flatbuffers-zstd codec")
	metricsFile := fs.String("metrics-file", "", "write prometheus metrics to this file on exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no input files")
	}

	cfg, err := config.Load("", fs)
	if err != nil {
		return err
	}
	lg, props, err := log.InitLogger(&cfg.Log)
	if err != nil {
		return err
	}
	log.ReplaceGlobals(lg, props)
	defer log.Sync()

	if *metricsFile != "" {
		metrics.Register(prometheus.DefaultRegisterer)
	}

	var decode decodeFunc
	if *framed {
		_, z, err := cfg.NewCodecs()
		if err != nil {
			return err
		}
		defer z.Close()
		decode = func(data []byte) ([]byte, error) {
			var p payload
			if err := z.Unmarshal(data, &p); err != nil {
				return nil, err
			}
			return p.buf, nil
		}
	}

	reports, err := inspectFiles(context.Background(), fs.Args(), cfg.Verifier.Options(), *sizePrefixed, *jobs, decode)
	if err != nil {
		return err
	}
	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, prometheus.DefaultGatherer); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	for _, r := range reports {
		r.print(out)
	}

	failed := lo.Filter(reports, func(r *report, _ int) bool { return r.Err != nil })
	if len(failed) > 0 {
		return errors.Newf("%d of %d files failed verification", len(failed), len(reports))
	}
	return nil
}

// decodeFunc turns the contents of a file into a flatbuffer.
type decodeFunc func(data []byte) ([]byte, error)

// payload captures the buffer a codec decoded.
type payload struct {
	buf []byte
}

func (p *payload) Init(buf []byte, _ flatbuffers.Position) {
	p.buf = buf
}

// inspectFiles reads and inspects files concurrently. A file that fails
// verification is reported, not returned as an error; only I/O errors stop
// the run.
func inspectFiles(ctx context.Context, files []string, opts flatbuffers.VerifierOptions, sizePrefixed bool, jobs int, decode decodeFunc) ([]*report, error) {
	reports := make([]*report, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := os.ReadFile(name)
			if err != nil {
				return errors.Wrapf(err, "read %s", name)
			}
			var r *report
			if decode != nil {
				if plain, err := decode(buf); err != nil {
					r = &report{Name: name, Size: len(buf), Err: errors.Wrap(err, "decode")}
				} else {
					buf = plain
				}
			}
			if r == nil {
				r = inspect(name, buf, opts, sizePrefixed)
				if r.Err != nil {
					metrics.VerifyFailures.Inc()
				}
			}
			if r.Err != nil {
				log.L().Warn("flatdump: invalid buffer", zap.String("file", name), zap.Error(r.Err))
			} else {
				log.L().Debug("flatdump: verified", zap.String("file", name), zap.Int("tables", r.Tables))
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
