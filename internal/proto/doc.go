// Package proto holds the wire contract of gophauth.v1.CredentialService as
// declared in gophauth.proto: request and response messages, the service
// descriptor shared by server and client, and the JSON codec they are
// carried with.
package proto
