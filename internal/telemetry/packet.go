package telemetry

import (
	"fmt"
	"strings"

	"github.com/tellofleet/sim/internal/model"
)

// StatePacket renders the state line broadcast on the state port, in the
// field order djitellopy expects. The mission pad block is appended only
// while a pad is detected.
func StatePacket(s model.Snapshot) string {
	k := s.Kinematics
	tm := s.Telemetry
	parts := []string{
		fmt.Sprintf("pitch:%d", int(k.Rotation.X)),
		fmt.Sprintf("roll:%d", int(k.Rotation.Y)),
		fmt.Sprintf("yaw:%d", int(k.Rotation.Z)),
		fmt.Sprintf("vgx:%d", int(k.Velocity.X)),
		fmt.Sprintf("vgy:%d", int(k.Velocity.Y)),
		fmt.Sprintf("vgz:%d", int(k.Velocity.Z)),
		fmt.Sprintf("templ:%d", int(tm.Temperature)),
		fmt.Sprintf("temph:%d", int(tm.Temperature)+2),
		fmt.Sprintf("tof:%d", tm.ToF),
		fmt.Sprintf("h:%d", int(k.Position.Z)),
		fmt.Sprintf("bat:%d", int(tm.Battery)),
		fmt.Sprintf("baro:%.2f", tm.Barometer),
		fmt.Sprintf("time:%d", tm.FlightTime),
		fmt.Sprintf("agx:%d", int(k.Acceleration.X)),
		fmt.Sprintf("agy:%d", int(k.Acceleration.Y)),
		fmt.Sprintf("agz:%d", int(k.Acceleration.Z)),
	}
	if tm.PadID >= 0 {
		parts = append(parts,
			fmt.Sprintf("mid:%d", tm.PadID),
			fmt.Sprintf("x:%d", tm.PadX),
			fmt.Sprintf("y:%d", tm.PadY),
			fmt.Sprintf("z:%d", tm.PadZ),
		)
	}
	return strings.Join(parts, ";") + ";"
}
