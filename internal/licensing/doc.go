// Package licensing talks to the remote license activation endpoint.
//
// An activation is a single JSON POST:
//
//	POST {activation_url}
//	{"license_key": "...", "instance_name": "..."}
//
// The server's answer is read into an ActivationResponse and classified by
// Decide. Only HTTP 200 and 400 bodies are inspected; 400 is how the server
// reports a key that was activated earlier, which still counts as valid.
//
// Every failure mode (transport error, unexpected status, malformed body,
// rejection) is reported as an error so callers fail closed.
package licensing
