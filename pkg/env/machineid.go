package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the unique ID identifying the machine, hashed with
// the application name so the raw ID is never published.
func MachineID() string {
	id, err := machineid.ProtectedID("bridge")
	if err != nil {
		glog.Warningf("machine ID unavailable: %v", err)
		return ""
	}
	return id
}
