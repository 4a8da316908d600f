package flowfsm

// Version is set at build time with -ldflags "-X github.com/aretw0/flowfsm.Version=...".
var Version = "v0.1.0-dev"
