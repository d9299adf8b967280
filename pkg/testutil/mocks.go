// Package testutil provides in-memory stand-ins for the portal's external
// collaborators.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/applywizz/portal/internal/objectstore"
)

// EdgeFunctions answers send-otp and verify-otp like the hosted functions.
// Every email receives Code; the hash handed back is "h-" + email.
type EdgeFunctions struct {
	Code string

	mu    sync.Mutex
	calls []string
}

// NewEdgeFunctions creates a fake whose codes are always code.
func NewEdgeFunctions(code string) *EdgeFunctions {
	return &EdgeFunctions{Code: code}
}

// Invoke implements otp.Invoker.
func (f *EdgeFunctions) Invoke(_ context.Context, name string, body, out any) error {
	in, ok := body.(map[string]string)
	if !ok {
		return fmt.Errorf("unexpected body %T", body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	var res map[string]interface{}
	switch name {
	case "send-otp":
		res = map[string]interface{}{"success": true, "hash": "h-" + in["email"]}
	case "verify-otp":
		ok := in["otp"] == f.Code && in["hash"] == "h-"+in["email"]
		res = map[string]interface{}{"success": ok}
		if !ok {
			res["error"] = "invalid code"
		}
	default:
		return fmt.Errorf("unknown function %q", name)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Calls returns the functions invoked so far.
func (f *EdgeFunctions) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Uploader keeps uploaded objects in memory.
type Uploader struct {
	Bucket string
	// Err, when set, fails every Put and Check.
	Err error

	mu      sync.Mutex
	objects map[string]objectstore.File
	order   []string
}

var _ objectstore.Uploader = (*Uploader)(nil)

// NewUploader returns an empty uploader for bucket.
func NewUploader(bucket string) *Uploader {
	return &Uploader{Bucket: bucket, objects: make(map[string]objectstore.File)}
}

func (u *Uploader) Ready() error   { return nil }
func (u *Uploader) Target() string { return u.Bucket }

func (u *Uploader) Check(context.Context) error { return u.Err }

func (u *Uploader) Put(_ context.Context, key string, f objectstore.File) error {
	if u.Err != nil {
		return u.Err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, seen := u.objects[key]; !seen {
		u.order = append(u.order, key)
	}
	u.objects[key] = f
	return nil
}

// Keys lists stored keys in first-upload order.
func (u *Uploader) Keys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.order...)
}

// Object returns the file stored under key.
func (u *Uploader) Object(key string) (objectstore.File, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	f, ok := u.objects[key]
	return f, ok
}
