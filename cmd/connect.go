package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/urfave/cli/v3"
)

// connectTimeout bounds how long Connect waits for the browser to come back.
const connectTimeout = 2 * time.Minute

// Connect runs the service on the configured address, sends the browser to /login and
// waits for the callback to store a credential.
//
// The configured redirect_uri must point at this address.
func (r *Runner) Connect(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := r.openApp(ctx, config)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(config.Server, server.Deps{
		Poller:     a.poller,
		Connector:  a.manager,
		Authorizer: a.spotify,
		Logger:     r.logger,
	})

	ln, err := net.Listen("tcp", config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Server.Addr(), err)
	}

	serveCtx, stop := context.WithCancel(ctx)
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(serveCtx, ln)
	}()
	stopped := false
	defer func() {
		stop()
		if stopped {
			return
		}
		if err := <-serverErrors; err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	client := services.NewWidgetClient("http://"+ln.Addr().String(), r.httpClient)
	loginURL := client.LoginURL(cmd.String("key"))

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", loginURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := r.openBrowser(loginURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", loginURL)
		}
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", connectTimeout)

	timeout := time.NewTimer(connectTimeout)
	defer timeout.Stop()

	var result server.ConnectResult
	select {
	case result = <-srv.OAuth().Results():
	case err := <-serverErrors:
		stopped = true
		return fmt.Errorf("server stopped before authorization: %w", err)
	case <-timeout.C:
		return fmt.Errorf("authorization timed out after %v: %w", connectTimeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return ctx.Err()
	}

	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Key == "" {
		return errors.New("no key received")
	}

	r.logger.Info("credential stored", "key", result.Key)

	r.writePlainln("✓ Authorization successful")
	r.writePlain("  Key: %s\n", result.Key)
	r.writePlain("  Now playing: %s/now-playing?key=%s\n", client.BaseURL(), url.QueryEscape(result.Key))
	r.writePlain("\nYou can now use: nowplaying status --key %s\n", result.Key)

	return nil
}
