package main

import (
	"fmt"
	"strings"
	"sync"

	"dualsub/internal/api"
	"dualsub/internal/config"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// apiAddr resolves the daemon address: the --addr flag wins, then the
// configured bind address.
func (c *commandContext) apiAddr() (string, error) {
	if c.addrFlag != nil {
		if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
			return addr, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) client() (*api.Client, error) {
	addr, err := c.apiAddr()
	if err != nil {
		return nil, err
	}
	return api.NewClient(addr)
}

// describeClientError turns connection failures into actionable guidance.
func (c *commandContext) describeClientError(err error) error {
	if err == nil {
		return nil
	}
	if api.IsDaemonUnavailable(err) {
		addr, addrErr := c.apiAddr()
		if addrErr != nil || addr == "" {
			addr = "the configured address"
		}
		return fmt.Errorf("cannot reach the dualsub daemon at %s; start it with `dualsub serve`", addr)
	}
	return err
}
