// SPDX-License-Identifier: MPL-2.0

package embed

// SelectToolchain returns the CMake toolchain file for target, or false when
// the target builds with the host toolchain.
func SelectToolchain(target Target, layout Layout) (string, bool) {
	switch target.normalized() {
	case TargetWindowsCross:
		return layout.withDefaults().ToolchainFile, true
	default:
		return "", false
	}
}
