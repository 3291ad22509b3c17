/*
Package session stores named graph documents ("files") on a ports.BlobStore.

The Manager serializes each domain.Document as canonical JSON, so opening a file
is the exact inverse of saving it. Access to one name is serialized with a
reference-counted in-process lock and, when configured, a distributed lock, so
several replicas can share a Redis store. Observers registered with
WithOnChange are told about every save and delete.
*/
package session
