package storefront

// Version is the SDK version, bumped on each tagged release
const Version = "0.4.1"
