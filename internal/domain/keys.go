package domain

// KeyPrefix is the default namespace for keys in key-value backends.
const KeyPrefix = "absola:"
