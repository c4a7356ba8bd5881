// Package browserz launches or connects to the Chromium-based browser that drives the owner details page.
//
// It is named browserz to avoid a name conflict with the rod browser type.
package browserz

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/rs/zerolog"
)

type Config struct {
	// ControlURL is the DevTools websocket URL of an already running browser. When set nothing is launched.
	ControlURL string

	// Bin is the browser executable. If empty the browser installed on the system is used, and if there is none rod
	// downloads one.
	Bin string

	Headless  bool
	NoSandbox bool

	// SlowMotion delays every input action. Useful with Headless false to watch a test run.
	SlowMotion time.Duration
	Trace      bool
}

// DefaultConfig returns a headless configuration.
func DefaultConfig() Config {
	return Config{Headless: true}
}

// ConfigFromValues builds a Config from named settings, e.g. environment variables. Missing or empty values keep the
// defaults of DefaultConfig.
func ConfigFromValues(value func(name string) string) (Config, error) {
	config := DefaultConfig()
	config.ControlURL = value("BROWSER_CONTROL_URL")
	config.Bin = value("BROWSER_BIN")

	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"BROWSER_HEADLESS", &config.Headless},
		{"BROWSER_NO_SANDBOX", &config.NoSandbox},
		{"BROWSER_TRACE", &config.Trace},
	} {
		if s := value(b.name); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", b.name, err)
			}
			*b.dst = v
		}
	}

	if s := value("BROWSER_SLOW_MOTION"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Config{}, fmt.Errorf("parse BROWSER_SLOW_MOTION: %w", err)
		}
		config.SlowMotion = d
	}

	return config, nil
}

// Browser is a connected browser and the launcher that started it, if any.
type Browser struct {
	*rod.Browser
	launcher *launcher.Launcher
}

// Launch starts or connects to a browser as described by config.
func Launch(ctx context.Context, config Config) (*Browser, error) {
	logger := zerolog.Ctx(ctx)

	controlURL := config.ControlURL
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().Headless(config.Headless).NoSandbox(config.NoSandbox)

		bin := config.Bin
		if bin == "" {
			if path, found := launcher.LookPath(); found {
				bin = path
			}
		}
		if bin != "" {
			l = l.Bin(bin)
		}

		logger.Debug().Str("bin", bin).Bool("headless", config.Headless).Msg("launching browser")

		var err error
		controlURL, err = l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	}

	rodBrowser := rod.New().
		ControlURL(controlURL).
		Trace(config.Trace).
		SlowMotion(config.SlowMotion)
	err := rodBrowser.Connect()
	if err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("connect to browser at %s: %w", controlURL, err)
	}

	logger.Debug().Str("control_url", controlURL).Msg("connected to browser")

	return &Browser{Browser: rodBrowser, launcher: l}, nil
}

// Close closes the browser and stops it if Launch started it.
func (b *Browser) Close() error {
	err := b.Browser.Close()
	if b.launcher != nil {
		b.launcher.Kill()
	}
	return err
}
