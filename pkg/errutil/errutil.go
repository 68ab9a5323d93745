// Package errutil provides a small helper for combining errors.
package errutil

import "strings"

// Multi combines multiple errors into one:
//
//   - If all errors are nil, it returns nil.
//
//   - If there is exactly one non-nil error, it is returned as is.
//
//   - Otherwise the returned error contains the messages of all non-nil
//     arguments. Errors already produced by Multi are flattened.
func Multi(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		switch err := err.(type) {
		case nil:
		case multiError:
			nonNil = append(nonNil, err...)
		default:
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	return multiError(nonNil)
}

type multiError []error

func (me multiError) Error() string {
	var sb strings.Builder
	sb.WriteString("multiple errors: ")
	for i, e := range me {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}
