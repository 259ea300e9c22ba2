// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file and environment variables, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Init initializes the application's configuration using Viper. It sets up
// default values, defines configuration search paths, and enables reading
// from environment variables. Call it once at application startup.
func Init() error {
	viper.SetConfigName("snapsite")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.snapsite")

	viper.SetDefault("output_dir", "dist")
	viper.SetDefault("development", false)

	viper.SetDefault("prerender.concurrency", 4)
	viper.SetDefault("prerender.retry_count", 0)
	viper.SetDefault("prerender.retry_delay", "200ms")
	viper.SetDefault("prerender.crawl_links", false)
	viper.SetDefault("prerender.auto_subfolder_index", true)
	viper.SetDefault("prerender.fail_on_error", false)
	viper.SetDefault("prerender.routes", []map[string]any{})

	viper.SetDefault("renderer.base_url", "")
	viper.SetDefault("renderer.timeout", "30s")

	viper.SetDefault("sitemap.enabled", false)
	viper.SetDefault("sitemap.host", "")
	viper.SetDefault("sitemap.output_path", "sitemap.xml")

	viper.SetDefault("serve.addr", ":8080")

	viper.SetEnvPrefix("SNAPSITE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Defaults and environment variables are enough.
			return nil
		}
		return err
	}
	return nil
}
