// Command health-check probes the health endpoint of a running botmanager,
// for use as a container health check.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/bloops-games/botmanager/internal/shutdown"
	"github.com/go-resty/resty/v2"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL     string        `envconfig:"BOTMANAGER_HEALTH_URL" default:"http://127.0.0.1:1234/health"`
	Timeout time.Duration `envconfig:"BOTMANAGER_HEALTH_TIMEOUT" default:"5s"`
}

type okResponse struct {
	Status string `json:"status"`
}

func main() {
	ctx, cancel := shutdown.New()
	defer cancel()

	logger := logging.FromContext(ctx).Named("health-check")
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		logger.Fatalf("processing the config: %v", err)
	}

	var ok okResponse
	resp, err := resty.New().
		SetTimeout(config.Timeout).
		R().
		SetContext(ctx).
		SetResult(&ok).
		Get(config.URL)
	if err != nil {
		logger.Fatalf("get %s: %v", config.URL, err)
	}

	if resp.StatusCode() != http.StatusOK || ok.Status != "ok" {
		_, _ = fmt.Fprintf(os.Stdout, "unhealthy: %d %s\n", resp.StatusCode(), ok.Status)
		os.Exit(1)
	}

	_, _ = fmt.Fprintln(os.Stdout, ok.Status)
}
