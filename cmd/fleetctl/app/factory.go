package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fleetcore-io/fleetcore/cmd/fleetctl/app/options"
	"github.com/fleetcore-io/fleetcore/internal/apiclient"
	"github.com/fleetcore-io/fleetcore/internal/export"
	"github.com/fleetcore-io/fleetcore/internal/pkg/metrics"
	"github.com/fleetcore-io/fleetcore/internal/session"
	"github.com/fleetcore-io/fleetcore/internal/views"
	"github.com/fleetcore-io/fleetcore/pkg/events"
	"github.com/fleetcore-io/fleetcore/pkg/log"
	"github.com/fleetcore-io/fleetcore/pkg/mqtt"
	"github.com/fleetcore-io/fleetcore/pkg/mqtt/topic"
	genericoptions "github.com/fleetcore-io/fleetcore/pkg/options"
	"github.com/fleetcore-io/fleetcore/pkg/socketio"
)

// factory builds clients and views from the resolved options. Nothing is
// constructed before the root command has loaded the configuration.
type factory struct {
	opts *options.FleetctlOptions
}

func newFactory(opts *options.FleetctlOptions) *factory {
	return &factory{opts: opts}
}

func (f *factory) Store() *session.Store {
	return session.NewStore(f.opts.Session.Path)
}

// Session returns the logged in session or an *session.AuthError.
func (f *factory) Session() (*session.Session, error) {
	return session.NewGate(f.Store()).Require()
}

// APIClient reads the token from the session store on every request.
func (f *factory) APIClient() (*apiclient.Client, error) {
	return apiclient.New(f.opts.API, f.Store(), apiclient.WithLogger(log.WithName("api").Logr()))
}

func (f *factory) Auth() (*views.Auth, error) {
	api, err := f.APIClient()
	if err != nil {
		return nil, err
	}
	return views.NewAuth(api, f.Store()), nil
}

// session plus API client, the pair every data command needs.
func (f *factory) authenticated() (*session.Session, *apiclient.Client, error) {
	sess, err := f.Session()
	if err != nil {
		return nil, nil, err
	}
	api, err := f.APIClient()
	if err != nil {
		return nil, nil, err
	}
	return sess, api, nil
}

// EventService connects to the configured event transport.
func (f *factory) EventService() (*events.Service, error) {
	l := log.WithName("events").Logr()

	var t events.Transport
	switch f.opts.Events.Transport {
	case genericoptions.TransportSocketIO:
		cfg := socketio.Config{URL: f.opts.Events.URL, Path: f.opts.Events.Path}
		t = events.NewSocketIOTransport(cfg, f.opts.Events.ReconnectInitial, f.opts.Events.ReconnectMax, f.authHeader, l)
	case genericoptions.TransportMQTT:
		client, err := mqtt.NewClient(f.opts.MQTT.ToClientConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create mqtt client: %w", err)
		}
		t = events.NewMQTTTransport(client, topic.NewTopicBuilder(f.opts.MQTT.TopicRoot), l)
	default:
		t = events.NopTransport{}
	}

	return events.NewService(t,
		events.WithLogger(l),
		events.WithObserver(func(name string, _ int) {
			metrics.EventsReceivedTotal.WithLabelValues(name).Inc()
		}),
	), nil
}

func (f *factory) authHeader() http.Header {
	h := http.Header{}
	if token, err := f.Store().Token(); err == nil && token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// Sink returns the S3 sink when upload is set, otherwise a file sink in the
// working directory.
func (f *factory) Sink(ctx context.Context, upload bool) (export.Sink, error) {
	if !upload {
		return export.FileSink{Dir: "."}, nil
	}
	s3, err := export.NewS3Sink(f.opts.S3, log.WithName("export").Logr())
	if err != nil {
		return nil, err
	}
	if err := s3.CheckBucket(ctx); err != nil {
		return nil, err
	}
	return s3, nil
}
