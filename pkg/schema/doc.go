// Package schema validates message contexts against declared field types.
//
// Group documents may declare, per message kind, which context fields a message
// carries and of what type:
//
//	contexts:
//	  OPEN:
//	    skipOpening: bool?
//	  SCROLL:
//	    offset: float
//	    tags: "[string]"
//
// Types are "string", "int", "float", "bool", "any" and "[T]" for slices. A trailing
// "?" marks the field optional. Fields not named in the schema are accepted as is.
//
//	s, err := schema.ParseTypeMap(map[string]string{"skipOpening": "bool?"})
//	if err := schema.Validate(s, msg.Context); err != nil {
//	    // one *FieldError per offending field
//	}
package schema
