/*
Package config loads importer settings for srpmproc.

	            +-------------+
	            |  Settings   |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+-----+ +----+----+ +-----+-----+
	|   YAML    | |  JSON   | |    HCL    |
	|  Parser   | | Parser  | |  Parser   |
	+-----------+ +---------+ +-----------+

🎯 Purpose:
- Reads which package to patch, where it is unpacked and where its patch
  repository lives
- Feeds the spec parser its macros (dist, major release, defines)
- Points AddFile/ReplaceFile uploads at a lookaside directory

🔄 Flow:
1. Load picks a parser by extension (unknown extensions try YAML, then HCL)
2. Relative paths are resolved against the settings file
3. Command line flags are merged over the file with Merge
4. Validate fills defaults and rejects incomplete settings
5. ImporterOptions hands everything to the importer

🔍 Example:

	s, err := config.Load(ctx, "srpmproc.hcl")
	if err != nil {
		return err
	}
	s.Merge(config.Settings{Branch: "r9"})
	if err := s.Validate(); err != nil {
		return err
	}
	im, err := importer.New(s.ImporterOptions(ctx))

HCL settings can read the environment:

	package     = "bash"
	package_dir = "work/bash"
	patch_repo  = format("%s/patch/bash.git", env.GIT_BASE)
	branch      = "r9"
*/
package config
