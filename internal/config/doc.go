// Package config provides loading and environment overlay for feedstore
// configuration.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/feedstore.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
