// Package health serves the liveness and readiness endpoints of
// "verdict run".
//
// The liveness endpoint always answers 200 and reports which registry
// snapshot is active, so operators can confirm that a reload took effect:
//
//	checker := health.New(5 * time.Second)
//	checker.SetRegistryInfo(health.StoreInfo(store))
//	checker.RegisterCheck("registry", health.RegistryCheck(store))
//	health.Register(mux, "/healthz", checker, version, commit, date)
//
// Readiness runs every registered check concurrently and answers 503 when
// any of them fails.
package health
