// Package errors provides standardized error handling patterns for the input manager.
//
// It implements a three-class error classification system: Transient (temporary,
// retryable by the host), Invalid (bad input or configuration, not retryable),
// and Fatal (a contract break the manager cannot recover from on its own).
//
// Use the standard error variables for common conditions and the Wrap family of
// functions to attach component/method/action context while preserving
// classification:
//
//	if !rd.Init(source, total, idx, fields) {
//	    return errors.WrapTransient(fmt.Errorf("reader init failed"), "manager", "CreateReader", "reader.Init")
//	}
//
// Classification supports errors.Is/errors.As through the whole chain:
//
//	if errors.IsFatal(err) {
//	    log.Error("contract break", "err", err)
//	}
package errors
