package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"photo-studio-backend/internal/config"
	"photo-studio-backend/internal/logging"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
	"photo-studio-backend/internal/store"
	"photo-studio-backend/internal/workflow"
)

type generateOptions struct {
	images    []string
	prompt    string
	submitURL string
	statusURL string
	resultURL string
	authToken string
	userID    string
	multi     bool
	credit    float64
}

func newGenerateCmd(v *viper.Viper) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Upload images, submit a generation and wait for the result",
		Example: `  studio generate --image a.jpg --prompt "add a hat" \
    --submit-url https://provider/submit --status-url https://provider/status/{requestId} \
    --result-url https://provider/result/{requestId} --auth-token $TOKEN --user $USER_ID`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), v, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.images, "image", nil, "Local image path or file:// URI (repeat for multi-image mode)")
	flags.StringVar(&opts.prompt, "prompt", "", "Edit instruction")
	flags.StringVar(&opts.submitURL, "submit-url", "", "Provider submit URL")
	flags.StringVar(&opts.statusURL, "status-url", "", "Provider status URL template")
	flags.StringVar(&opts.resultURL, "result-url", "", "Provider result URL template")
	flags.StringVar(&opts.authToken, "auth-token", os.Getenv("STUDIO_AUTH_TOKEN"), "Bearer token for the job proxy")
	flags.StringVar(&opts.userID, "user", "cli", "User id used in storage paths")
	flags.BoolVar(&opts.multi, "multi", false, "Multi-image mode (default when more than one --image is given)")
	flags.Float64Var(&opts.credit, "credit", 0, "Usage-credit hint sent as extra.token")
	return cmd
}

func (o *generateOptions) request() models.JobRequest {
	mode := models.ModeSingle
	if o.multi || len(o.images) > 1 {
		mode = models.ModeMulti
	}
	req := models.JobRequest{
		UserID: o.userID,
		Mode:   mode,
		Images: o.images,
		Prompt: o.prompt,
		Endpoints: models.Endpoints{
			SubmitURL: o.submitURL,
			StatusURL: o.statusURL,
			ResultURL: o.resultURL,
		},
		AuthToken: o.authToken,
	}
	if credit, ok := models.ParseCreditHint(o.credit); ok {
		req.Extra = map[string]interface{}{"token": credit}
	}
	return req
}

func runGenerate(ctx context.Context, v *viper.Viper, opts *generateOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req := opts.request()
	if err := workflow.Validate(req); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploader, err := services.NewUploader(ctx, cfg, nil)
	if err != nil {
		return err
	}
	engine := services.NewEngine(cfg, uploader, logger)

	return runWithEngine(ctx, engine, req, out)
}

// runWithEngine drives one job through a local store and prints each
// transition.
func runWithEngine(ctx context.Context, runner services.Runner, req models.JobRequest, out io.Writer) error {
	st := store.New()
	refs := make([]models.ImageRef, 0, len(req.Images))
	for _, uri := range req.Images {
		refs = append(refs, models.NewImageRef(uri))
	}

	var err error
	if req.Mode == models.ModeSingle {
		err = st.SelectImage(refs[0])
	} else {
		err = st.SelectImages(refs)
	}
	if err != nil {
		return err
	}
	if _, err := st.StartGeneration(req.Prompt); err != nil {
		return err
	}
	fmt.Fprintf(out, "uploading %d image(s)\n", len(req.Images))

	resultURL, runErr := runner.Run(ctx, req, &printingObserver{Store: st, out: out})
	if runErr != nil {
		_ = st.FailGeneration(runErr.Error())
		return fmt.Errorf("generation failed after %d status checks: %w", st.Snapshot().PollAttempts, runErr)
	}
	if err := st.CompleteGeneration(resultURL); err != nil {
		return err
	}
	fmt.Fprintln(out, resultURL)
	return nil
}

type printingObserver struct {
	*store.Store
	out io.Writer
}

func (p *printingObserver) Uploaded(index int, url string) {
	p.Store.Uploaded(index, url)
	fmt.Fprintf(p.out, "uploaded image %d: %s\n", index, url)
}

func (p *printingObserver) Submitted(providerJobID string) {
	p.Store.Submitted(providerJobID)
	fmt.Fprintf(p.out, "submitted job %s\n", providerJobID)
}

func (p *printingObserver) Polled(attempt int, status string) {
	p.Store.Polled(attempt, status)
	fmt.Fprintf(p.out, "status check %d: %s\n", attempt, status)
}
