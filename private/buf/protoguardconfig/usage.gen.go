// Generated. DO NOT EDIT.

package protoguardconfig

import _ "github.com/bufbuild/protoguard/private/usage"
