package sources

import "disclosure-lab/internal/httpclient"

// newClient builds the shared paced client from adapter config.
func newClient(name string, cfg Config, extra ...httpclient.Option) *httpclient.Client {
	var opts []httpclient.Option
	if cfg.RequestDelay > 0 {
		opts = append(opts, httpclient.WithRequestDelay(cfg.RequestDelay))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, httpclient.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, httpclient.WithHeaders(cfg.Headers))
	}
	return httpclient.New(name, append(opts, extra...)...)
}
