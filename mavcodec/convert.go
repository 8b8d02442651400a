package mavcodec

import (
	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
)

// Convert maps a decoded frame event onto the Message tagged union. It
// returns (Message{}, false) for any message kind the state engine does
// not consume, so callers can drop it without further inspection.
func Convert(evt *gomavlib.EventFrame) (Message, bool) {
	sysID := evt.SystemID()

	switch m := evt.Message().(type) {
	case *ardupilotmega.MessageHeartbeat:
		return Message{Kind: KindHeartbeat, SystemID: sysID}, true

	case *ardupilotmega.MessageGlobalPositionInt:
		return Message{
			Kind:     KindGlobalPositionInt,
			SystemID: sysID,
			GlobalPositionInt: &GlobalPositionInt{
				Lat:         m.Lat,
				Lon:         m.Lon,
				RelativeAlt: m.RelativeAlt,
				Hdg:         m.Hdg,
				Vx:          m.Vx,
				Vz:          m.Vz,
			},
		}, true

	case *ardupilotmega.MessageSysStatus:
		return Message{
			Kind:     KindSysStatus,
			SystemID: sysID,
			SysStatus: &SysStatus{
				VoltageBattery: m.VoltageBattery,
				CurrentBattery: m.CurrentBattery,
			},
		}, true

	case *ardupilotmega.MessageVfrHud:
		return Message{
			Kind:     KindVfrHud,
			SystemID: sysID,
			VfrHud: &VfrHud{
				Airspeed:    m.Airspeed,
				Groundspeed: m.Groundspeed,
				Climb:       m.Climb,
				Heading:     m.Heading,
			},
		}, true

	case *ardupilotmega.MessageWind:
		return Message{
			Kind:     KindWind,
			SystemID: sysID,
			Wind:     &Wind{Speed: m.Speed},
		}, true

	case *ardupilotmega.MessageGpsRawInt:
		return Message{
			Kind:     KindGpsRawInt,
			SystemID: sysID,
			GpsRawInt: &GpsRawInt{Eph: m.Eph},
		}, true

	case *ardupilotmega.MessageAttitude:
		return Message{
			Kind:     KindAttitude,
			SystemID: sysID,
			Attitude: &Attitude{Roll: m.Roll, Pitch: m.Pitch, Yaw: m.Yaw},
		}, true

	case *ardupilotmega.MessageNavControllerOutput:
		return Message{
			Kind:     KindNavControllerOutput,
			SystemID: sysID,
			NavControllerOutput: &NavControllerOutput{WpDist: m.WpDist},
		}, true

	case *ardupilotmega.MessageServoOutputRaw:
		return Message{
			Kind:     KindServoOutputRaw,
			SystemID: sysID,
			ServoOutputRaw: &ServoOutputRaw{
				Servo3Raw:  m.Servo3Raw,
				Servo9Raw:  m.Servo9Raw,
				Servo10Raw: m.Servo10Raw,
				Servo11Raw: m.Servo11Raw,
				Servo12Raw: m.Servo12Raw,
			},
		}, true

	case *ardupilotmega.MessageMissionCount:
		return Message{
			Kind:     KindMissionCount,
			SystemID: sysID,
			MissionCount: &MissionCount{Count: m.Count},
		}, true

	case *ardupilotmega.MessageMissionItemInt:
		return Message{
			Kind:     KindMissionItemInt,
			SystemID: sysID,
			MissionItemInt: &MissionItemInt{
				Seq: m.Seq,
				X:   m.X,
				Y:   m.Y,
				Z:   m.Z,
			},
		}, true

	default:
		return Message{}, false
	}
}
