package console

import "errors"

var (
    ErrUnknownView = errors.New("console: unknown view")
    ErrNoBinding   = errors.New("console: no such action on screen")
    ErrStopped     = errors.New("console: controller stopped")
    ErrNotRunning  = errors.New("console: controller not running")
)
