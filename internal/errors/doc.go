// Package errors provides structured, actionable error values for routekit.
//
// Every error produced by the router core carries a stable code that maps to
// a short message, a longer explanation and a fix hint:
//
//	R001  no route matched the pathname
//	R002  the pathname could not be decoded
//	R003  search or params validation failed
//	R004  a beforeLoad or loader returned an error
//	R005  redirect chain exceeded the configured limit
//	R006  the route tree violates a structural invariant
//	R101  configuration could not be loaded
//
// # Usage
//
//	err := errors.New("R003").
//	    WithRoute("/posts/$postId").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR R003: Validation failed
//	//
//	//   route /posts/$postId
//	//
//	//   A search or params validator rejected the input for this route.
//	//
//	//   Hint: Check the validator attached to the route.
//
// Errors created here unwrap to their cause, so errors.Is and errors.As work
// across the boundary.
package errors
