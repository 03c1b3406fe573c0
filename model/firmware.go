package model

// FirmwareUpdateState is the module-side install state machine for one
// subdevice.
type FirmwareUpdateState string

const (
	FirmwareStateIdle       FirmwareUpdateState = "IDLE"
	FirmwareStateInstalling FirmwareUpdateState = "INSTALLING"
	FirmwareStateCompleted  FirmwareUpdateState = "COMPLETED"
	FirmwareStateFailed     FirmwareUpdateState = "FAILED"
	FirmwareStateAborted    FirmwareUpdateState = "ABORTED"
)

// FirmwareState is the tracked firmware condition of one subdevice.
type FirmwareState struct {
	Status         FirmwareUpdateState
	CurrentVersion string
}

// FirmwareUpdateStatusType is the status token published on the firmware
// status channel.
type FirmwareUpdateStatusType string

const (
	FirmwareStatusInstallation FirmwareUpdateStatusType = "INSTALLATION"
	FirmwareStatusCompleted    FirmwareUpdateStatusType = "COMPLETED"
	FirmwareStatusAborted      FirmwareUpdateStatusType = "ABORTED"
	FirmwareStatusError        FirmwareUpdateStatusType = "ERROR"
)

// FirmwareUpdateError qualifies an ERROR firmware status.
type FirmwareUpdateError string

const (
	FirmwareErrorUnspecified        FirmwareUpdateError = "UNSPECIFIED"
	FirmwareErrorFileSystem         FirmwareUpdateError = "FILE_SYSTEM_ERROR"
	FirmwareErrorInstallationFailed FirmwareUpdateError = "INSTALLATION_FAILED"
)

// FirmwareUpdateStatus is one status report for a firmware install, addressed
// to a single subdevice. Error is only meaningful when Status is ERROR.
type FirmwareUpdateStatus struct {
	DeviceKey string
	Status    FirmwareUpdateStatusType
	Error     FirmwareUpdateError
}

// FirmwareUpdateInstall is a platform command to install a firmware file that
// already exists on the local filesystem.
type FirmwareUpdateInstall struct {
	DeviceKeys []string
	FileName   string
}

// FirmwareUpdateAbort is a platform command to abort an in-progress install.
type FirmwareUpdateAbort struct {
	DeviceKeys []string
}

// FirmwareVersion is the currently installed firmware version of one subdevice.
type FirmwareVersion struct {
	DeviceKey string
	Version   string
}
