// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	InputNotFoundId Id = iota + 1
	InvalidRequestId
	EncoderFailedId
	ConfigureFailedId
	BuildFailedId
	ArtifactMissingId
	FilesystemErrorId
	ConfigLoadFailedId
	PermissionDeniedId
	ToolNotFoundId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render returns the issue as terminal Markdown in the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	var extra strings.Builder
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extra.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			extra.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			extra.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(string(i.mdMsg)+extra.String(), stylePath)
}

var (
	render = glamour.Render

	inputNotFoundIssue = &Issue{
		id: InputNotFoundId,
		mdMsg: `
# Input file not found!

The file you asked to embed does not exist or is not a regular file.
Nothing was written and no build was started.

## Things you can try:
- Check the path, it is resolved against the current directory:
~~~
$ ls -l ./game.rom
~~~

- Pass a file, not a directory:
~~~
$ g1embed ./game.rom ./game
~~~`,
	}

	invalidRequestIssue = &Issue{
		id: InvalidRequestId,
		mdMsg: `
# Invalid options!

One or more options are out of range.

## Rules:
- ` + "`--scale`" + ` must be a positive integer
- ` + "`--title`" + ` must not be empty
- the output path must not be empty

## Example:
~~~
$ g1embed game.rom game --scale 3 --title "My Game"
~~~`,
	}

	encoderFailedIssue = &Issue{
		id: EncoderFailedId,
		mdMsg: `
# Encoding failed!

The hex dump tool could not turn the input into a C header.

## Things you can try:
- Make sure ` + "`xxd`" + ` is installed and supports ` + "`-n`" + ` (vim 9 or newer):
~~~
$ xxd -v
~~~

- Point the encoder to another binary in your config:
~~~cue
encoder: command: "/usr/local/bin/xxd"
~~~`,
		extLinks: []HttpLink{"https://github.com/vim/vim/blob/master/runtime/doc/xxd.1"},
	}

	configureFailedIssue = &Issue{
		id: ConfigureFailedId,
		mdMsg: `
# Build configuration failed!

CMake could not configure the runtime project.

## Things you can try:
- Run again with ` + "`--verbose`" + ` to see the full CMake output
- Make sure you run g1embed from the runtime source tree, or set ` + "`build.source_dir`" + `
- For ` + "`--windows`" + `, install the MinGW-w64 cross toolchain and check that
  the toolchain file exists:
~~~
$ ls mingw-w64-toolchain.cmake
~~~`,
		extLinks: []HttpLink{"https://cmake.org/cmake/help/latest/manual/cmake.1.html"},
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed!

The compiler or linker reported an error while building the executable.

## Things you can try:
- Run again with ` + "`--verbose`" + ` to see the compiler output
- Static builds need static versions of every library, try without ` + "`--static`" + `
- Remove the build workspace and retry:
~~~
$ rm -rf embed_build
~~~`,
	}

	artifactMissingIssue = &Issue{
		id: ArtifactMissingId,
		mdMsg: `
# Built executable not found!

The build reported success but the expected binary is not in the workspace.

## Things you can try:
- Check ` + "`build.executable_name`" + ` in your config matches the CMake target
- Look at the workspace content:
~~~
$ ls embed_build
~~~`,
	}

	filesystemErrorIssue = &Issue{
		id: FilesystemErrorId,
		mdMsg: `
# Filesystem error!

A local file operation failed while embedding.

## Things you can try:
- Check free disk space
- Check that the header directory and the output directory exist and are writable`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your configuration file could not be loaded.

## Things you can try:
- Print where g1embed looks for it:
~~~
$ g1embed config path
~~~

- Write a fresh default config:
~~~
$ g1embed config init
~~~

- Show the effective configuration:
~~~
$ g1embed config show
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

g1embed was not allowed to read or write a file.

## Things you can try:
- Check the permissions of the input file and the output directory
- Check that the source tree is writable, the header and workspace live there`,
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# Required tool not found!

g1embed needs ` + "`xxd`" + ` and ` + "`cmake`" + ` on your PATH.

## Things you can try:
~~~
$ which xxd cmake
~~~

- On Debian and Ubuntu:
~~~
$ sudo apt install xxd cmake build-essential
~~~`,
	}

	issues = map[Id]*Issue{
		inputNotFoundIssue.Id():    inputNotFoundIssue,
		invalidRequestIssue.Id():   invalidRequestIssue,
		encoderFailedIssue.Id():    encoderFailedIssue,
		configureFailedIssue.Id():  configureFailedIssue,
		buildFailedIssue.Id():      buildFailedIssue,
		artifactMissingIssue.Id():  artifactMissingIssue,
		filesystemErrorIssue.Id():  filesystemErrorIssue,
		configLoadFailedIssue.Id(): configLoadFailedIssue,
		permissionDeniedIssue.Id(): permissionDeniedIssue,
		toolNotFoundIssue.Id():     toolNotFoundIssue,
	}
)

// Values returns every registered issue ordered by Id.
func Values() []*Issue {
	values := slices.Collect(maps.Values(issues))
	slices.SortFunc(values, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
