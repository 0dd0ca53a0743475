// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/optionfactory/treebitmap/internal/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type lookupResponse struct {
	IP     string `json:"ip"`
	Prefix string `json:"prefix,omitempty"`
	Value  string `json:"value,omitempty"`
	Found  bool   `json:"found"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("write response")
	}
}

// newHandler serves /lookup?ip= and /metrics, the metrics are
// registered with reg.
func newHandler(st *SyncTable, reg *prometheus.Registry) http.Handler {
	lookups := metrics.NewLookupCounter(reg)
	reg.MustRegister(metrics.NewCollector("routes", st))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /lookup", func(w http.ResponseWriter, r *http.Request) {
		ip, err := netip.ParseAddr(r.URL.Query().Get("ip"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		resp := lookupResponse{IP: ip.String()}
		if pfx, val, ok := st.LongestMatch(ip); ok {
			resp.Prefix = pfx.String()
			resp.Value = val
			resp.Found = true
		}
		lookups.Observe(resp.Found)

		writeJSON(w, http.StatusOK, resp)
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}

func newServeCmd(opts *options) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups and metrics over HTTP, SIGHUP reloads the routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tbl, err := loadTable(ctx, opts)
			if err != nil {
				return err
			}
			st := NewSyncTable(tbl)

			hup, stopHup := notifyHangup()
			defer stopHup()
			go reloadOnHangup(ctx, hup, st, opts)

			srv := &http.Server{
				Addr:              listen,
				Handler:           newHandler(st, prometheus.NewRegistry()),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.WithField("listen", listen).Info("starting HTTP listener")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return errors.WithStack(err)
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "HTTP listen address")
	return cmd
}

// notifyHangup relays SIGHUP to the returned channel until stop is called.
func notifyHangup() (hup <-chan os.Signal, stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	return ch, func() { signal.Stop(ch) }
}

// reloadOnHangup reads the route files again on every signal from hup
// and publishes the new table. A failed reload keeps the current table.
func reloadOnHangup(ctx context.Context, hup <-chan os.Signal, st *SyncTable, opts *options) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			tbl, err := loadTable(ctx, opts)
			if err != nil {
				log.WithError(err).Error("reload failed, keeping the current routes")
				continue
			}
			st.Replace(tbl)
			log.Info("routes reloaded")
		}
	}
}
