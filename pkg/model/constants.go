package model

type SyncStore string

const (
	KVConfig  SyncStore = "kvConfig"
	SyncState SyncStore = "syncState"
)

// Keys inside the SyncState store. The cache maps and the backup log are
// persisted as whole serialized collections under these keys.
const (
	FingerprintMapKey = "fingerprintToRemote"
	LocalIDMapKey     = "localIdToFingerprint"
	BackupLogKey      = "backupLog"
)

// Keys inside the KVConfig store.
const (
	EndpointConfigKey = "endpoint"
	DeviceIDConfigKey = "deviceID"
	TokenConfigKey    = "apiToken"
)

// SentinelExisting marks a fingerprint confirmed to exist remotely via the
// batch duplicate-check, where no concrete remote id was resolved.
const SentinelExisting = "_existing"
