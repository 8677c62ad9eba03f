// Package runtime wires storage, config and the feed registry into a
// single-node feedstore instance. It exposes Open/Close, a basic health check
// and the registry built over the opened data directory.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	f, _ := rt.Registry().CreateLocal(registry.CreateOptions{Name: "notes"}, nil)
//	_, _ = f.Append(context.Background(), []byte("hello"))
package runtime
