package osioconfig

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// WatchDebounce is the delay after the last change before the handler is invoked
const WatchDebounce = 100 * time.Millisecond

// WatchConfig watches a configuration file for changes, eg an api key that was rotated.
// Multiple quick changes are debounced into a single callback. After the callback the
// file is watched again, as renames replace the inode of the file.
//  configFile path to watch
//  handler to invoke after the file changed
// This returns the fsnotify watcher. Close it when done.
func WatchConfig(configFile string, handler func() error) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Errorf("WatchConfig: unable to create watcher: %s", err)
		return nil, err
	}
	callbackTimer := time.AfterFunc(0, func() {
		logrus.Debugf("WatchConfig: invoking callback for %s", configFile)
		if err := handler(); err != nil {
			logrus.Warningf("WatchConfig: handler for %s failed: %s", configFile, err)
		}
		// file renames change the inode of the filename, resubscribe
		_ = watcher.Remove(configFile)
		if err := watcher.Add(configFile); err != nil {
			logrus.Errorf("WatchConfig: unable to watch %s again: %s", configFile, err)
		}
	})
	callbackTimer.Stop() // don't start yet

	err = watcher.Add(configFile)
	if err != nil {
		logrus.Errorf("WatchConfig: unable to watch for changes: %s", err)
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					callbackTimer.Stop()
					return
				}
				logrus.Debugf("WatchConfig: event: %s", event)
				callbackTimer.Reset(WatchDebounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Errorf("WatchConfig: Error: %s", err)
			}
		}
	}()
	return watcher, nil
}
