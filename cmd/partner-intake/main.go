// cmd/partner-intake/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"salon-partner-intake/internal/common/observability"
	partnerform "salon-partner-intake/internal/intake/partner-form"
)

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "submit":
		err = runSubmit(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "token":
		err = runToken(ctx, os.Args[2:])
	case "help", "-h", "--help":
		help()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		help()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func help() {
	fmt.Println(`Usage: partner-intake <command> [flags]

Commands:
  submit   fill the partner form from flags and submit it once
  serve    serve the partner form over HTTP
  token    set or clear the stored bearer token`)
}

func runSubmit(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("submit", flag.ExitOnError)
	values := make(map[partnerform.Field]*string, len(partnerform.Fields))
	for _, f := range partnerform.Fields {
		values[f] = cmd.String(string(f), "", f.Label())
	}
	_ = cmd.Parse(args)

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	obs := observability.New(a.cfg.App.Name, nil)
	defer obs.Shutdown()

	form, err := partnerform.NewForm(partnerform.ServiceDependencies{
		Logger:   a.log,
		Leads:    a.leads,
		Cookies:  a.cookieWriter(func(line string) { fmt.Println(line) }),
		Recorder: obs,
		Notifier: partnerform.NotifierFunc(func(n partnerform.Notification) {
			fmt.Printf("[%s] %s\n  %s\n", n.Variant, n.Title, n.Description)
		}),
	}, nil)
	if err != nil {
		return err
	}

	for _, f := range partnerform.Fields {
		if !form.Update(f, *values[f]) {
			fmt.Fprintf(os.Stderr, "warning: %s rejected (more than %d digits)\n", f.Label(), partnerform.PhoneDigits)
		}
	}
	for f, hint := range form.Hints() {
		fmt.Fprintf(os.Stderr, "%s: %s\n", f.Label(), hint)
	}

	result, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	if !result.Succeeded() {
		return fmt.Errorf("submission failed: %s", result.Outcome)
	}
	if result.LeadID != "" {
		fmt.Println("Lead ID:", result.LeadID)
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := cmd.String("addr", "", "listen address (overrides server.address)")
	_ = cmd.Parse(args)

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if *addr != "" {
		a.cfg.Server.Address = *addr
	}

	obs := observability.New(a.cfg.App.Name, nil)
	defer obs.Shutdown()

	form, err := partnerform.NewHandler(partnerform.HandlerOptions{
		AppConfig: a.cfg,
		Leads:     a.leads,
		Recorder:  obs,
		Logger:    a.log,
	})
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.RequestID, middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	if a.cfg.Metrics.Enabled {
		r.Handle(a.cfg.Metrics.Path, promhttp.Handler())
	}
	form.MountRoutes(r)

	srv := &http.Server{
		Addr:              a.cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.zapLog.Info("Partner form listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runToken(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("token", flag.ExitOnError)
	set := cmd.String("set", "", "store this bearer token")
	clearToken := cmd.Bool("clear", false, "remove the stored bearer token")
	_ = cmd.Parse(args)

	if (*set != "") == *clearToken {
		cmd.Usage()
		return fmt.Errorf("exactly one of -set or -clear is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.redis == nil {
		a.zapLog.Warn("Token store backend is memory; the change lasts only for this process")
	}
	if *clearToken {
		return a.tokens.ClearToken(ctx)
	}
	return a.tokens.SetToken(ctx, *set)
}
