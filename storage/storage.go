// Package storage persists service contexts by name.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mwsobol/SORCER-sub002/core"
)

// ErrNotFound occurs when no context has the requested name.
var ErrNotFound = errors.New("context not found")

// ContextManagement is CRUD by name for persisted contexts.
type ContextManagement interface {
	GetContext(ctx context.Context, name string) (*core.ServiceContext, error)

	SaveContext(ctx context.Context, name string, c *core.ServiceContext) error

	DeleteContext(ctx context.Context, name string) error

	// ContextNames returns the stored names, sorted.
	ContextNames(ctx context.Context) ([]string, error)
}

// MethodKey is the name under which the context of an interface's
// method is kept: "interface#method".
func MethodKey(interfaceName, methodName string) string {
	return interfaceName + "#" + methodName
}

// ProviderKey is the name under which the context of a provider's
// method is kept: "provider@serviceType#method".
func ProviderKey(providerName, serviceType, methodName string) string {
	return providerName + "@" + MethodKey(serviceType, methodName)
}

// Namespace is the kind of name a context is stored under.
type Namespace string

const (
	Plain    Namespace = "context"
	Method   Namespace = "method"
	Provider Namespace = "provider"
)

// NamespaceOf tells which key function made the name.
func NamespaceOf(name string) Namespace {
	hash := strings.LastIndex(name, "#")
	if hash < 0 {
		return Plain
	}
	if at := strings.Index(name, "@"); 0 <= at && at < hash {
		return Provider
	}
	return Method
}

func GetMethodContext(ctx context.Context, cm ContextManagement, interfaceName, methodName string) (*core.ServiceContext, error) {
	return cm.GetContext(ctx, MethodKey(interfaceName, methodName))
}

func SaveMethodContext(ctx context.Context, cm ContextManagement, interfaceName, methodName string, c *core.ServiceContext) error {
	return cm.SaveContext(ctx, MethodKey(interfaceName, methodName), c)
}

func DeleteMethodContext(ctx context.Context, cm ContextManagement, interfaceName, methodName string) error {
	return cm.DeleteContext(ctx, MethodKey(interfaceName, methodName))
}

func GetProviderContext(ctx context.Context, cm ContextManagement, providerName, serviceType, methodName string) (*core.ServiceContext, error) {
	return cm.GetContext(ctx, ProviderKey(providerName, serviceType, methodName))
}

func SaveProviderContext(ctx context.Context, cm ContextManagement, providerName, serviceType, methodName string, c *core.ServiceContext) error {
	return cm.SaveContext(ctx, ProviderKey(providerName, serviceType, methodName), c)
}

func DeleteProviderContext(ctx context.Context, cm ContextManagement, providerName, serviceType, methodName string) error {
	return cm.DeleteContext(ctx, ProviderKey(providerName, serviceType, methodName))
}

// Accessor makes a ContextManagement resolve links by name.
func Accessor(cm ContextManagement) core.Accessor {
	return core.AccessorFunc(func(ctx context.Context, name string) (core.Context, error) {
		c, err := cm.GetContext(ctx, name)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Encode renders a context for storage.
func Encode(c *core.ServiceContext) ([]byte, error) {
	return json.Marshal(c)
}

// Decode reverses Encode.  The context's links resolve through cm.
func Decode(js []byte, cm ContextManagement) (*core.ServiceContext, error) {
	return core.DecodeContext(js, core.WithAccessor(Accessor(cm)))
}
