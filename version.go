package flowgraph

// Version is overwritten at build time with -ldflags "-X github.com/aretw0/flowgraph.Version=...".
var Version = "dev"
