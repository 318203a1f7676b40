package config

type WorkerKeyStruct struct {
	ExpirySweepLock string
}

var WorkerKey = &WorkerKeyStruct{
	ExpirySweepLock: "lock:test_expiry_sweep",
}
