package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"s3snap/internal/config"
	"s3snap/internal/storage"
	"s3snap/pkg/logger"
	"s3snap/pkg/object"
)

const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorReset  = "\033[0m"
)

// ErrFailed is returned once a failure has already been reported to the user.
var ErrFailed = errors.New("command failed")

// Env is what every command runs against.
type Env struct {
	Out     io.Writer
	Color   bool
	Store   object.ObjectStorage
	Bucket  string
	MaxKeys int32
}

// Setup loads configuration from envFile and the environment, applies the
// log level and opens the configured backend. The returned func closes it.
func Setup(ctx context.Context, envFile string) (Env, func(), error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return Env{}, nil, err
	}
	logger.SetLevel(cfg.LogLevel)

	st, err := storage.Open(ctx, cfg)
	if err != nil {
		return Env{}, nil, err
	}

	env := Env{
		Out:     os.Stdout,
		Color:   term.IsTerminal(int(os.Stdout.Fd())),
		Store:   st,
		Bucket:  cfg.Bucket,
		MaxKeys: cfg.MaxKeys,
	}
	closeFn := func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Log.Warn().Err(err).Msg("close storage")
		}
	}
	return env, closeFn, nil
}

func (e Env) bucket(flag string) string {
	if flag != "" {
		return flag
	}
	if e.Bucket != "" {
		return e.Bucket
	}
	return config.DefaultBucket
}

func (e Env) printf(color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.Color && color != "" {
		msg = color + msg + colorReset
	}
	fmt.Fprintln(e.Out, msg)
}
