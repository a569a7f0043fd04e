// SPDX-License-Identifier: MPL-2.0

package embed

import "strconv"

const (
	optEmbedded      = "-DG1_EMBEDDED=ON"
	optShowFPS       = "-DG1_FLAG_SHOW_FPS="
	optScale         = "-DG1_FLAG_SCALE="
	optTitle         = "-DG1_FLAG_TITLE="
	optStaticBuild   = "-DSTATIC_BUILD=ON"
	optToolchainFile = "-DCMAKE_TOOLCHAIN_FILE="
)

// BuildConfigureArgs projects req onto the argument list of the CMake
// configure step. The result depends only on its inputs and keeps a fixed
// order: workspace, embedded switch, the three runtime flags, then the
// optional static and toolchain options.
//
// Scale and title are passed through verbatim; CMake is the authority on
// whether they are acceptable.
func BuildConfigureArgs(req Request, layout Layout) []string {
	layout = layout.withDefaults()

	args := []string{
		"-B", layout.WorkspaceDir,
		optEmbedded,
		optShowFPS + cmakeBool(req.ShowFPS),
		optScale + strconv.Itoa(req.Scale),
		optTitle + req.Title,
	}

	if req.StaticLink {
		args = append(args, optStaticBuild)
	}

	if toolchain, ok := SelectToolchain(req.Target, layout); ok {
		args = append(args, optToolchainFile+toolchain)
	}

	return args
}

// BuildArgs returns the argument list of the CMake build step.
func BuildArgs(layout Layout) []string {
	return []string{"--build", layout.withDefaults().WorkspaceDir}
}

// cmakeBool spells booleans the way the runtime's CMakeLists expects them.
func cmakeBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
