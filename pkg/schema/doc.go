// Package schema is the type system of data ports.
//
// Every data port carries a Type. Built-in types cover the scalar kinds a
// graph literal can express (string, int, float, double, bool), the top type
// any, slices, and control flow markers. Host commands that expose their own
// Go types get an ObjectType derived through Of.
//
// Two ports may be connected when CanConnect accepts their types:
//
//	schema.CanConnect(schema.Int(), schema.Double())   // true, widening
//	schema.CanConnect(schema.String(), schema.Int())   // false
//
// Schemas map field names to types and validate the shared values of a graph:
//
//	values := schema.Schema{
//	    "player": schema.String(),
//	    "score":  schema.Int(),
//	}
//
//	if err := schema.Validate(values, data); err != nil {
//	    // Handle validation errors
//	}
//
// Schemas can also be parsed from type strings, which is how configuration
// files declare them:
//
//	values, err := schema.ParseTypeMap(map[string]string{"score": "int", "tags": "[string]"})
package schema
