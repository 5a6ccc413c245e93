// Package ir provides the shared data types for duet.
//
// This package contains values, realm tags, class declarations and the wire
// messages exchanged between realms. All other internal packages import ir;
// ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64
//   - Property values are never null; IRNull exists only for decoding
//   - All JSON tags use snake_case
//   - Messages carry logical sequence numbers, never wall-clock timestamps
package ir
