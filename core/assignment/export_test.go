package assignment

import "time"

// SetNow freezes the service clock; the returned func restores it.
func SetNow(t time.Time) (restore func()) {
	orig := nowFunc
	nowFunc = func() time.Time { return t }
	return func() { nowFunc = orig }
}
