// Package platform restores method names on classes that implement
// well-known framework callback interfaces. The interface table is static:
// when a class declares one of these interfaces and a method's descriptor
// matches the interface method exactly, the name is certain.
package platform

import "strings"

// interfaceMethods maps interface qualified name -> exact descriptor ->
// method name. Marker interfaces appear with an empty set and never match.
var interfaceMethods = map[string]map[string]string{
	// View listeners
	"android.view.View$OnClickListener": {
		"(Landroid/view/View;)V": "onClick",
	},
	"android.view.View$OnLongClickListener": {
		"(Landroid/view/View;)Z": "onLongClick",
	},
	"android.view.View$OnTouchListener": {
		"(Landroid/view/View;Landroid/view/MotionEvent;)Z": "onTouch",
	},
	"android.view.View$OnKeyListener": {
		"(Landroid/view/View;ILandroid/view/KeyEvent;)Z": "onKey",
	},
	"android.view.View$OnFocusChangeListener": {
		"(Landroid/view/View;Z)V": "onFocusChange",
	},
	"android.view.View$OnScrollChangeListener": {
		"(Landroid/view/View;IIII)V": "onScrollChange",
	},
	"android.view.View$OnLayoutChangeListener": {
		"(Landroid/view/View;IIIIIIII)V": "onLayoutChange",
	},

	// AdapterView listeners
	"android.widget.AdapterView$OnItemClickListener": {
		"(Landroid/widget/AdapterView;Landroid/view/View;IJ)V": "onItemClick",
	},
	"android.widget.AdapterView$OnItemLongClickListener": {
		"(Landroid/widget/AdapterView;Landroid/view/View;IJ)Z": "onItemLongClick",
	},
	"android.widget.AdapterView$OnItemSelectedListener": {
		"(Landroid/widget/AdapterView;Landroid/view/View;IJ)V": "onItemSelected",
		"(Landroid/widget/AdapterView;)V":                      "onNothingSelected",
	},

	// Text and widget state
	"android.text.TextWatcher": {
		"(Ljava/lang/CharSequence;III)V": "onTextChanged",
		"(Landroid/text/Editable;)V":     "afterTextChanged",
	},
	"android.widget.CompoundButton$OnCheckedChangeListener": {
		"(Landroid/widget/CompoundButton;Z)V": "onCheckedChanged",
	},
	"android.widget.SeekBar$OnSeekBarChangeListener": {
		"(Landroid/widget/SeekBar;IZ)V": "onProgressChanged",
		"(Landroid/widget/SeekBar;)V":   "onStartTrackingTouch",
	},

	// Dialog listeners
	"android.content.DialogInterface$OnClickListener": {
		"(Landroid/content/DialogInterface;I)V": "onClick",
	},
	"android.content.DialogInterface$OnCancelListener": {
		"(Landroid/content/DialogInterface;)V": "onCancel",
	},
	"android.content.DialogInterface$OnDismissListener": {
		"(Landroid/content/DialogInterface;)V": "onDismiss",
	},
	"android.content.DialogInterface$OnShowListener": {
		"(Landroid/content/DialogInterface;)V": "onShow",
	},

	// java.lang / java.util
	"java.lang.Runnable": {
		"()V": "run",
	},
	"java.lang.Comparable": {
		"(Ljava/lang/Object;)I": "compareTo",
	},
	"java.util.Comparator": {
		"(Ljava/lang/Object;Ljava/lang/Object;)I": "compare",
	},
	"java.lang.Iterable": {
		"()Ljava/util/Iterator;": "iterator",
	},
	"java.util.Iterator": {
		"()Z":                  "hasNext",
		"()Ljava/lang/Object;": "next",
		"()V":                  "remove",
	},
	"java.io.Serializable": {}, // marker
	"java.lang.Cloneable":  {}, // marker
	"java.util.concurrent.Callable": {
		"()Ljava/lang/Object;": "call",
	},
	"android.os.Handler$Callback": {
		"(Landroid/os/Message;)Z": "handleMessage",
	},

	// Animation
	"android.view.animation.Animation$AnimationListener": {
		"(Landroid/view/animation/Animation;)V": "onAnimationStart",
	},
	"android.animation.Animator$AnimatorListener": {
		"(Landroid/animation/Animator;)V": "onAnimationStart",
	},
	"android.animation.ValueAnimator$AnimatorUpdateListener": {
		"(Landroid/animation/ValueAnimator;)V": "onAnimationUpdate",
	},

	// Surface / broadcast / lifecycle
	"android.view.SurfaceHolder$Callback": {
		"(Landroid/view/SurfaceHolder;)V":    "surfaceCreated",
		"(Landroid/view/SurfaceHolder;III)V": "surfaceChanged",
	},
	"android.content.BroadcastReceiver": {
		"(Landroid/content/Context;Landroid/content/Intent;)V": "onReceive",
	},
	"android.app.Application$ActivityLifecycleCallbacks": {
		"(Landroid/app/Activity;Landroid/os/Bundle;)V": "onActivityCreated",
		"(Landroid/app/Activity;)V":                    "onActivityStarted",
	},

	// Sensors and location
	"android.location.LocationListener": {
		"(Landroid/location/Location;)V":               "onLocationChanged",
		"(Ljava/lang/String;)V":                        "onProviderEnabled",
		"(Ljava/lang/String;ILandroid/os/Bundle;)V":    "onStatusChanged",
	},
	"android.hardware.SensorEventListener": {
		"(Landroid/hardware/SensorEvent;)V": "onSensorChanged",
		"(Landroid/hardware/Sensor;I)V":     "onAccuracyChanged",
	},

	// Media
	"android.media.MediaPlayer$OnPreparedListener": {
		"(Landroid/media/MediaPlayer;)V": "onPrepared",
	},
	"android.media.MediaPlayer$OnCompletionListener": {
		"(Landroid/media/MediaPlayer;)V": "onCompletion",
	},
	"android.media.MediaPlayer$OnErrorListener": {
		"(Landroid/media/MediaPlayer;II)Z": "onError",
	},
	"android.media.MediaPlayer$OnBufferingUpdateListener": {
		"(Landroid/media/MediaPlayer;I)V": "onBufferingUpdate",
	},

	// WebView
	"android.webkit.WebViewClient": {
		"(Landroid/webkit/WebView;Ljava/lang/String;)V":                     "onPageFinished",
		"(Landroid/webkit/WebView;ILjava/lang/String;Ljava/lang/String;)V": "onReceivedError",
	},
	"android.webkit.WebChromeClient": {
		"(Landroid/webkit/WebView;I)V":                  "onProgressChanged",
		"(Landroid/webkit/WebView;Ljava/lang/String;)V": "onReceivedTitle",
	},

	// Gestures
	"android.view.GestureDetector$OnGestureListener": {
		"(Landroid/view/MotionEvent;)Z":                                        "onDown",
		"(Landroid/view/MotionEvent;)V":                                        "onShowPress",
		"(Landroid/view/MotionEvent;Landroid/view/MotionEvent;FF)Z":            "onScroll",
	},
	"android.view.GestureDetector$OnDoubleTapListener": {
		"(Landroid/view/MotionEvent;)Z": "onSingleTapConfirmed",
	},
	"android.view.ScaleGestureDetector$OnScaleGestureListener": {
		"(Landroid/view/ScaleGestureDetector;)Z": "onScale",
		"(Landroid/view/ScaleGestureDetector;)V": "onScaleEnd",
	},

	// RecyclerView (AndroidX)
	"androidx.recyclerview.widget.RecyclerView$Adapter": {
		"(Landroid/view/ViewGroup;I)Landroidx/recyclerview/widget/RecyclerView$ViewHolder;": "onCreateViewHolder",
		"(Landroidx/recyclerview/widget/RecyclerView$ViewHolder;I)V":                        "onBindViewHolder",
		"()I": "getItemCount",
	},
}

// Matcher answers descriptor lookups against the static interface table.
type Matcher struct {
	bySignature map[string][]entry
}

type entry struct {
	iface  string
	method string
}

// NewMatcher builds the signature index once; the matcher is immutable and
// safe for concurrent queries.
func NewMatcher() *Matcher {
	m := &Matcher{bySignature: make(map[string][]entry)}
	for iface, methods := range interfaceMethods {
		for sig, name := range methods {
			m.bySignature[sig] = append(m.bySignature[sig], entry{iface: iface, method: name})
		}
	}
	return m
}

// Match returns the interface and method name for a method descriptor when
// one of the declared interfaces is known. First hit wins. Interface names
// may be given in smali (Lx/y;) or dotted form.
func (m *Matcher) Match(declaredInterfaces []string, desc string) (iface, method string, ok bool) {
	if len(declaredInterfaces) == 0 {
		return "", "", false
	}
	declared := make(map[string]bool, len(declaredInterfaces))
	for _, raw := range declaredInterfaces {
		declared[normalizeInterface(raw)] = true
	}
	for _, e := range m.bySignature[desc] {
		if declared[e.iface] {
			return e.iface, e.method, true
		}
	}
	return "", "", false
}

// Known reports whether any declared interface appears in the table at all.
func (m *Matcher) Known(declaredInterfaces []string) bool {
	for _, raw := range declaredInterfaces {
		if _, ok := interfaceMethods[normalizeInterface(raw)]; ok {
			return true
		}
	}
	return false
}

// InterfaceCount reports the number of interfaces in the static table.
func (m *Matcher) InterfaceCount() int { return len(interfaceMethods) }

// MethodCount reports the total number of interface methods in the table.
func (m *Matcher) MethodCount() int {
	n := 0
	for _, methods := range interfaceMethods {
		n += len(methods)
	}
	return n
}

func normalizeInterface(raw string) string {
	if strings.HasPrefix(raw, "L") && strings.HasSuffix(raw, ";") {
		raw = raw[1 : len(raw)-1]
	}
	return strings.ReplaceAll(raw, "/", ".")
}
