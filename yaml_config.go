package pumped

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ProvideYAMLConfig declares a leaf executor that loads a YAML file into T
// and keeps itself current: a background watcher reloads the file on write
// and pushes the new value through Update, so reactive dependents pick up
// config changes without the consumer polling anything. The watcher is torn
// down via the executor's own cleanup on release or scope disposal.
func ProvideYAMLConfig[T any](path string, opts ...ExecutorOption) *Executor[T] {
	return Provide(func(ctx *ResolveCtx, self *Controller[T]) (T, error) {
		cfg, err := loadYAMLConfig[T](path)
		if err != nil {
			var zero T
			return zero, err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			// Watching is a convenience, not a correctness requirement: if the
			// platform watcher can't start, still serve the loaded config.
			return cfg, nil
		}
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return cfg, nil
		}

		stop := make(chan struct{})
		go watchYAMLConfig[T](watcher, path, self, stop)

		ctx.OnCleanup(func() error {
			close(stop)
			return watcher.Close()
		})

		return cfg, nil
	}, opts...)
}

func loadYAMLConfig[T any](path string) (T, error) {
	var cfg T
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func watchYAMLConfig[T any](watcher *fsnotify.Watcher, path string, self *Controller[T], stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := loadYAMLConfig[T](path)
			if err != nil {
				continue
			}
			self.Update(context.Background(), cfg)
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
