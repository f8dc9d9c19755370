/*
Package config holds the strongly typed configuration elements for fosol.

	            +-------------+
	            |   Config    |
	            |  (Elements) |
	            +------+------+
	                   |
	    +--------------+--------------+
	    |              |              |
	+---+---+      +---+---+      +---+---+
	| YAML  |      |  HCL  |      | JSON  |
	|Parser |      |Parser |      |Parser |
	+-------+      +-------+      +-------+

🎯 Purpose:
- Loads configuration from YAML, HCL or JSON, chosen by file extension
- Fills in defaults and validates every element
- Keeps a cached copy up to date while the file changes on disk

🔄 Flow:
 1. Load reads the file and picks a Parser
 2. The parser decodes into Config (JSON is checked against schema.json first)
 3. Validate sets defaults and collects all violations
 4. Watcher serves the last good Config and reloads on change

📚 Elements:
  - ServerElement: listen address, injected headers, IP allow-list, public paths
  - TemplateElement: named text templates, inline or from a file
  - ImageElement: size caps, JPEG quality, scaling filter

🔍 Example:

	w, err := config.NewWatcher(ctx, "fosol.yaml")
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	w.Subscribe(func(cfg *config.Config) {
		fmt.Println("reloaded:", cfg)
	})

	tmpl, ok := w.Current().Template("greeting")

HCL files can read the environment through the "env" variable:

	server {
	  listen = env.FOSOL_LISTEN
	  header "X-Served-By" {
	    value = "fosol {request_id}"
	  }
	}
*/
package config
