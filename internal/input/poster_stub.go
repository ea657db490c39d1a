//go:build !darwin

package input

import "fmt"

func newPlatformPoster() (poster, error) {
	return nil, fmt.Errorf("no input injection backend on this platform")
}
