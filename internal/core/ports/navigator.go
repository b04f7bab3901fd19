package ports

// Navigator forces client navigation outside of the normal guard flow.
type Navigator interface {
	// ToLogin requests that the next navigation lands on the login entry point.
	ToLogin()
}
