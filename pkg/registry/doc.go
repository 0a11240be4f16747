// Package registry binds component types to renderers on the client side.
// Renderers are resolved lazily: a component arrives unbound and gets its
// renderer the first time its type is drawn.
package registry
