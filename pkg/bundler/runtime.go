package bundler

import (
	"encoding/json"
)

// runtimePrelude is the loader runtime wrapped around the serialized module
// map. The require function inserts a module's exports object into the
// instance cache *before* executing its factory; if a factory circularly
// requires a module that is still executing, it receives that module's
// exports in whatever state they have reached so far instead of re-entering
// the factory.
const runtimePrelude = `(function (modules, entry) {
  var cache = {};

  function require(path) {
    if (Object.prototype.hasOwnProperty.call(cache, path)) {
      return cache[path];
    }

    var exports = {};
    cache[path] = exports;
    modules[path](exports, require);
    return exports;
  }

  require(entry);
})`

// quoteJS renders a string as a JS string literal; JSON string syntax is a
// subset of JS.
func quoteJS(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return string(out)
}
