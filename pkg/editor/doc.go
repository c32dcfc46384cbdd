/*
Package editor applies declarative patch configs to an unpacked package.

	+-----------+      +---------------+      +-----------+
	|  Config   | ---> |  ActionQueue  | ---> |  Package  |
	| (YAML)    |      | (ordered run) |      | (on disk) |
	+-----------+      +-------+-------+      +-----------+
	                           |
	                   +-------+-------+
	                   |    Action     |
	                   | (9 kinds)     |
	                   +---------------+

🎯 Purpose:
- Validate a whole patch config before anything on disk changes
- Turn each entry into an Action with a checked parameter set
- Run the actions against one package tree, stopping on the first failure

🔄 Flow:
1. Load parses the YAML into a generic tree and checks its shape
2. Every action entry is validated against its key schema
3. The queue runs ordinary actions in order, then spec_changelog actions
   in reverse declaration order
4. A rule that changes nothing is a NotApplied fault

🔍 Example:

	cfg, err := editor.Load(ctx, "PATCH/main.yml")
	if err != nil {
		return err
	}
	err = cfg.Run(ctx, "/var/tmp/bash-1234")
*/
package editor
