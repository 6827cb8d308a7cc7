package build_info

// Set by the linker: -ldflags "-X github.com/warp-contracts/tom-indexer/src/utils/build_info.Version=..."
var Version = "dev"
