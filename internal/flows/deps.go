package flows

// Deps groups flow dependency sets. The Manager builds this once and
// delegates each operation to the matching Run function.
type Deps struct {
	Issue   IssueDeps
	Verify  VerifyDeps
	Refresh RefreshDeps
}
