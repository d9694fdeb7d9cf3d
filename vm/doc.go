// Package vm implements the SuperBasic virtual machine.
//
// This package contains:
//   - Immutable values with total conversions between variants
//   - Decimal arithmetic and comparison operators
//   - Bytecode instructions, modules and programs
//   - Program images encoded as canonical CBOR
//   - A pausable engine that runs one burst per Execute call
package vm
