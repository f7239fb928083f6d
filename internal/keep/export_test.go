package keep

import "time"

// SetPollInterval shortens a Keeper's watch cadence for tests.
func SetPollInterval(k *Keeper, d time.Duration) {
	k.interval = d
}
