package capture

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// AuthStatus is the process-wide camera authorization state.
type AuthStatus int

// Authorization states.
const (
	NotDetermined AuthStatus = iota
	Authorized
	Denied
	Restricted
)

func (s AuthStatus) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	default:
		return "not-determined"
	}
}

// MarshalText renders the status as its name.
func (s AuthStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Authorizer reports and requests permission to use the camera.
type Authorizer interface {
	// Status returns the current state without prompting.
	Status() AuthStatus

	// RequestAccess resolves a not-determined state asynchronously and calls
	// done with the outcome. Only the first call performs a request; later
	// calls report the settled outcome.
	RequestAccess(done func(granted bool))
}

// DeviceAuthorizer derives camera authorization from access to a V4L
// device node. There is no interactive prompt on Linux: the "request" is
// the first access check, run in the background.
type DeviceAuthorizer struct {
	path   string
	access func(path string, mode uint32) error

	once   sync.Once
	mu     sync.RWMutex
	status AuthStatus
}

// NewDeviceAuthorizer returns an authorizer for the device node at path.
func NewDeviceAuthorizer(path string) *DeviceAuthorizer {
	return &DeviceAuthorizer{path: path, access: unix.Access}
}

// Status implements Authorizer.
func (a *DeviceAuthorizer) Status() AuthStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// RequestAccess implements Authorizer.
func (a *DeviceAuthorizer) RequestAccess(done func(granted bool)) {
	go func() {
		a.once.Do(func() {
			s := a.check()
			a.mu.Lock()
			a.status = s
			a.mu.Unlock()
		})
		if done != nil {
			done(a.Status() == Authorized)
		}
	}()
}

func (a *DeviceAuthorizer) check() AuthStatus {
	err := a.access(a.path, unix.R_OK|unix.W_OK)
	switch {
	case err == nil:
		return Authorized
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return Denied
	case errors.Is(err, unix.EROFS):
		return Restricted
	default:
		// Missing node: nothing to deny. The Source reports the absent
		// device when it fails to open it.
		return Authorized
	}
}

// StaticAuthorizer always reports a fixed status. Used for still-image
// runs where no camera is involved, and in tests.
type StaticAuthorizer AuthStatus

// Status implements Authorizer.
func (s StaticAuthorizer) Status() AuthStatus { return AuthStatus(s) }

// RequestAccess implements Authorizer.
func (s StaticAuthorizer) RequestAccess(done func(granted bool)) {
	if done != nil {
		go done(AuthStatus(s) == Authorized)
	}
}

// Authorize queries a, issuing a request if the state is not yet
// determined, and blocks until the outcome is known.
func Authorize(a Authorizer) AuthStatus {
	if s := a.Status(); s != NotDetermined {
		return s
	}
	ch := make(chan struct{})
	a.RequestAccess(func(bool) { close(ch) })
	<-ch
	return a.Status()
}
