package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/presentation/tui"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/observability"
	"github.com/aretw0/chatflow/pkg/runner"
	"golang.org/x/term"
)

// Execute handles the run command, dispatching to a single session or watch mode.
func Execute(ctx context.Context, opts RunOptions) error {
	if opts.Watch {
		return RunWatch(ctx, opts, os.Stdin, os.Stdout)
	}
	g, err := LoadFlow(ctx, opts.FlowPath, opts.Owner, opts.StoreDir)
	if err != nil {
		return err
	}
	return RunSession(ctx, g, opts, os.Stdin, os.Stdout)
}

// RunSession previews g as a conversation on in and out.
// Rich rendering is only used when both ends are terminals.
func RunSession(ctx context.Context, g domain.Graph, opts RunOptions, in io.Reader, out io.Writer) error {
	handler := newHandler(opts, in, out)
	if isInteractive(in, out) && !opts.JSON && !opts.NoBanner {
		tui.PrintBanner(out)
	}
	return handleExecutionError(runPreview(ctx, g, opts, handler))
}

func runPreview(ctx context.Context, g domain.Graph, opts RunOptions, handler runner.IOHandler) error {
	logger := createLogger(opts.Debug)
	studio := newStudio(opts)

	preview := studio.Preview(g)
	defer preview.Close()

	r := runner.NewRunner(
		runner.WithInputHandler(handler),
		runner.WithLogger(logger),
		runner.WithEchoReplies(opts.JSON),
	)
	return r.Run(ctx, preview)
}

func newStudio(opts RunOptions) *chatflow.Studio {
	logger := createLogger(opts.Debug)
	studioOpts := []chatflow.Option{chatflow.WithLogger(logger)}
	if opts.Debug {
		studioOpts = append(studioOpts, chatflow.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	if opts.Delay >= 0 {
		studioOpts = append(studioOpts, chatflow.WithDelay(opts.Delay))
	}
	if opts.MaxSteps > 0 {
		studioOpts = append(studioOpts, chatflow.WithMaxSteps(opts.MaxSteps))
	}
	return chatflow.New(studioOpts...)
}

func newHandler(opts RunOptions, in io.Reader, out io.Writer) runner.IOHandler {
	if opts.JSON {
		return runner.NewJSONHandler(in, out)
	}
	var textOpts []runner.TextHandlerOption
	if isInteractive(in, out) {
		textOpts = append(textOpts,
			runner.WithTextHandlerRenderer(tui.NewRenderer()),
			runner.WithTextHandlerStyler(tui.NewAnnotationStyler()),
		)
	}
	return runner.NewTextHandler(in, out, textOpts...)
}

func isInteractive(in io.Reader, out io.Writer) bool {
	fin, ok := in.(*os.File)
	if !ok {
		return false
	}
	fout, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(fin.Fd())) && term.IsTerminal(int(fout.Fd()))
}
